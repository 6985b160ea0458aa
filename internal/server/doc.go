// Package server provides HTTP server setup and initialization for the
// extension bridge.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, recovery)
//   - Managed storage layout and permission store
//   - Extension registry and bundled-extension seeding
//   - WebSocket event hub for the display process
//
// Server Lifecycle:
//  1. Load configuration from environment/settings file
//  2. Initialize logger (production or development)
//  3. Open permission store and extension registry
//  4. Seed bundled extensions
//  5. Setup HTTP routes and middleware
//  6. Start HTTP server on loopback
//  7. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
