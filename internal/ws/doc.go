// Package ws provides WebSocket event streaming to the display process.
//
// The hub implements the registry's event sink: lifecycle changes
// (install, state, permissions, remove) are pushed to every connected
// display process as JSON frames.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system.connected: Stream established
//   - pong: Keep-alive reply
//   - extension.installed: New extension committed to the registry
//   - extension.state: Enabled/disabled transition
//   - extension.permissions: Permission grants changed
//   - extension.removed: Extension uninstalled
//
// Example Usage:
//
//	hub := ws.NewHub(metrics, logger)
//	registry.WithEvents(hub)
//	router.GET("/ws", hub.HandleConnection)
package ws
