// Package http provides HTTP handlers for the display-process bridge API.
//
// This package implements all REST endpoints using the Gin framework,
// including health checks, package validation, extension lifecycle, and
// partition derivation.
//
// Endpoints:
//   - Health: / and /health
//   - Validation: /extensions/validate
//   - Lifecycle: /extensions, /extensions/:id, /extensions/:id/enabled
//   - Permissions: /extensions/:id/permissions
//   - Isolation: /partitions/derive
//
// Features:
//   - JSON request/response handling
//   - Typed error payloads ({error: {kind, message}})
//   - Proper HTTP status codes per error kind
//   - Request validation
//
// Example Usage:
//
//	handlers := http.NewHandlers(registry, deriver, metrics)
//	router.POST("/extensions/validate", handlers.ValidatePackage)
//	router.GET("/extensions", handlers.ListExtensions)
package http
