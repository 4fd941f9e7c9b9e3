// internal/handlers/api_server.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/jason-s-yu/czar/internal/lobby"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Stats
}

// StatusHandler reports liveness and room counts.
func StatusHandler(gs *GameServer, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := gs.Stats(r.Context())
		if err != nil {
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{
			Status:    "ok",
			Uptime:    time.Since(startedAt).Round(time.Second).String(),
			Timestamp: time.Now().UTC(),
			Stats:     st,
		})
	}
}

// CreateRoomHandler opens an empty room. Players join it over the socket.
func CreateRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := gs.CreateRoom(r.Context())
		if errors.Is(err, lobby.ErrNoFreeCode) {
			writeJSON(w, http.StatusServiceUnavailable, fail(err))
			return
		}
		if err != nil {
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

// GetRoomHandler returns the public snapshot of the room named in the path.
func GetRoomHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		snap, found, err := gs.RoomSnapshot(r.Context(), code)
		if err != nil {
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, Result{Error: "room not found", Code: CodeRoomNotFound})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// HealthHandler answers load balancer probes.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Routes registers every HTTP and websocket endpoint on mux.
func Routes(mux *http.ServeMux, gs *GameServer, ws http.Handler, startedAt time.Time) {
	mux.Handle("GET /game/ws", ws)
	mux.HandleFunc("GET /api/status", StatusHandler(gs, startedAt))
	mux.HandleFunc("POST /api/rooms", CreateRoomHandler(gs))
	mux.HandleFunc("GET /api/rooms/{code}", GetRoomHandler(gs))
	mux.HandleFunc("GET /health", HealthHandler)
}
