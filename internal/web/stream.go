package web

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	socketBufferSize = 1024
	streamBuffer     = 16
	writeWait        = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	// The stream is read-only telemetry for tools on the local network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler upgrades to a websocket and writes one JSON rate command per
// message until the client goes away.
func StreamHandler(cmds *CommandBroadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cmds == nil {
			http.Error(w, "stream unavailable", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		id, ch := cmds.Subscribe(streamBuffer)
		defer cmds.Unsubscribe(id)

		// Reads only detect the close; clients are not expected to send data.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.NextReader(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case cmd, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(cmd); err != nil {
					return
				}
			}
		}
	})
}
