// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game socket.
const (
	BadSubprotocolError    websocket.StatusCode = 3000 // Client did not negotiate the czar subprotocol.
	ServerUnavailableError websocket.StatusCode = 3001 // Command loop is not accepting connections.
)
