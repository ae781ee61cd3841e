package feed

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/orrn/printqueue/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server streams snapshots to websocket clients. A client may send a
// Selection at any time; it gets a fresh snapshot for it immediately and on
// every hub notification after that.
type Server struct {
	hub    *Hub
	source Source
	logger *logging.Logger
}

func NewServer(hub *Hub, source Source, logger *logging.Logger) *Server {
	return &Server{
		hub:    hub,
		source: source,
		logger: logger.With("component", "feed"),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	notify, release := s.hub.Subscribe()
	defer release()

	s.logger.Debug("feed client connected", "subscribers", s.hub.Subscribers())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	selections := make(chan Selection, 1)
	go s.readLoop(conn, selections, cancel)

	s.writeLoop(ctx, conn, notify, selections, Selection{
		Filter: r.URL.Query().Get("filter"),
		Sort:   r.URL.Query().Get("sort"),
	})

	s.logger.Debug("feed client disconnected")
}

func (s *Server) readLoop(conn *websocket.Conn, out chan Selection, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var sel Selection
		if err := conn.ReadJSON(&sel); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("feed read failed", "error", err)
			}
			return
		}
		// keep only the latest selection
		select {
		case <-out:
		default:
		}
		out <- sel
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, notify <-chan struct{}, selections <-chan Selection, sel Selection) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if !s.send(ctx, conn, sel) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notify:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
		case sel = <-selections:
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}
		if !s.send(ctx, conn, sel) {
			return
		}
	}
}

func (s *Server) send(ctx context.Context, conn *websocket.Conn, sel Selection) bool {
	snap, err := Build(ctx, s.source, sel)
	if err != nil {
		s.logger.Error("failed to build snapshot", "error", err)
		return true
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		s.logger.Debug("feed write failed", "error", err)
		return false
	}
	return true
}
