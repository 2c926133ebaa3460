package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/michaelpento.lv/triscan/scanner"
	"github.com/michaelpento.lv/triscan/types"
	"go.uber.org/zap"
)

const wsWriteWait = 10 * time.Second

// wsMessage is sent by a client to start a watch session
type wsMessage struct {
	Event string   `json:"event"`
	Data  scanBody `json:"data"`
}

type wsEvent struct {
	Event string             `json:"event"`
	Data  *types.Opportunity `json:"data,omitempty"`
	Error string             `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(ev wsEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Publish(ctx context.Context, opp *types.Opportunity) error {
	return c.send(wsEvent{Event: "opportunity", Data: opp})
}

// handleWatch upgrades to a WebSocket. A "startScan" message starts a
// watcher over the first watch paths of the request; a new "startScan"
// replaces the running one and disconnecting stops it.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	conn := &wsConn{conn: ws}
	s.logger.Info("Client connected", zap.String("remote", r.RemoteAddr))

	var (
		watcher *scanner.Watcher
		cancel  context.CancelFunc = func() {}
	)
	stop := func() {
		cancel()
		if watcher != nil {
			watcher.Stop()
			watcher = nil
		}
	}
	defer stop()

	for {
		var msg wsMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("WebSocket read ended", zap.Error(err))
			}
			s.logger.Info("Client disconnected", zap.String("remote", r.RemoteAddr))
			return
		}

		switch msg.Event {
		case "startScan":
			stop()
			req := msg.Data.request()
			req.MaxPaths = s.watch.WatchPaths
			sinks := append([]scanner.Sink{conn}, s.sinks...)
			next, err := scanner.NewWatcher(s.scanner, req, s.watch.ScanInterval, s.logger, sinks...)
			if err != nil {
				_ = conn.send(wsEvent{Event: "error", Error: message(err)})
				continue
			}
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			watcher = next
			watcher.Start(ctx)
		case "stopScan":
			stop()
		default:
			_ = conn.send(wsEvent{Event: "error", Error: "unknown event " + msg.Event})
		}
	}
}
