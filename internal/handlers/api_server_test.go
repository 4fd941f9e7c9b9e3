package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomsAPI(t *testing.T) {
	srv, _ := setupHTTPServer(t)

	resp, err := http.Post(srv.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Code    string        `json:"code"`
		HostID  string        `json:"hostId"`
		Players []interface{} `json:"players"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created.Code, 4)
	assert.Empty(t, created.HostID)
	assert.Empty(t, created.Players)

	got, err := http.Get(srv.URL + "/api/rooms/" + created.Code)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)

	missing, err := http.Get(srv.URL + "/api/rooms/0000")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	status, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer status.Body.Close()
	var st StatusResponse
	require.NoError(t, json.NewDecoder(status.Body).Decode(&st))
	assert.Equal(t, "ok", st.Status)
	assert.Equal(t, 1, st.Rooms)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestCreateRoomWhenCodesRunOut(t *testing.T) {
	srv, gs := setupHTTPServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, gs.Exec(ctx, func() {
		for {
			if _, err := gs.Store.CreateRoom(); err != nil {
				return
			}
		}
	}))

	resp, err := http.Post(srv.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var res Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, CodeServerFull, res.Code)

	res, err = gs.Submit(ctx, "alice", Command{Type: CmdCreateRoom, PlayerName: "Alice"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeServerFull, res.Code)
}
