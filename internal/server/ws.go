package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/livebridge/livebridge/internal/protocol"
)

// Handler is the bridge-side of a client connection.
type Handler interface {
	OnClientConnect(send func(protocol.ServerMessage))
	HandleClientMessage(m protocol.ClientMessage, send func(protocol.ServerMessage))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Touch clients connect from other devices on the LAN.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS upgrades the connection and pumps messages both ways until the
// peer disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := s.hub.Subscribe()
	s.log.Infof("client %s connected (%d total)", client.ID, s.hub.ClientCount())

	defer func() {
		s.hub.Unsubscribe(client)
		conn.Close()
		s.log.Infof("client %s disconnected (%d total)", client.ID, s.hub.ClientCount())
	}()

	// Write pump: everything queued for this client goes out here, so a
	// single goroutine owns the write side of the socket.
	go func() {
		for {
			select {
			case data := <-client.C:
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-client.Done():
				return
			}
		}
	}()

	s.handler.OnClientConnect(client.Send)

	for {
		var m protocol.ClientMessage
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Warnf("client %s read error", client.ID)
			}
			return
		}
		s.handler.HandleClientMessage(m, client.Send)
	}
}
