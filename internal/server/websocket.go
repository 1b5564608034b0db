package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/source"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingPeriod   = 30 * time.Second
	// Frames waiting for the engine; pushes block beyond this.
	wsFrameBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMessage is sent to clients for every engine event and for errors.
type WebSocketMessage struct {
	Type   string      `json:"type"` // "processed", "detected" or "error"
	Result *ScanResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg WebSocketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

// scanWebSocketHandler streams binary image frames into a scanner session and
// reports every processed and detected event back to the client. The
// "readers" query parameter selects the decoder readers for the connection.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wc := &wsConn{conn: conn}
	stream := source.NewChannel(wsFrameBuffer)
	defer stream.Close()

	emit := func(kind string) scanner.Handler {
		return func(res scanner.Result) {
			if kind == "processed" {
				scanRequestsTotal.WithLabelValues("websocket", "success").Inc()
				codesPerScan.WithLabelValues("websocket").Observe(float64(len(res.Codes)))
			}
			if err := wc.send(WebSocketMessage{Type: kind, Result: toScanResult(res)}); err != nil {
				slog.Debug("WebSocket send failed", "error", err)
				cancel()
			}
		}
	}

	ss, err := s.openSession(ctx, s.optionsFor(stream, r.URL.Query().Get("readers")), emit("detected"), emit("processed"))
	if err != nil {
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		_ = wc.send(WebSocketMessage{Type: "error", Error: fmt.Sprintf("scan session failed: %v", err)})
		return
	}
	defer ss.close()

	s.readFrames(ctx, wc, stream)
}

// readFrames pushes binary messages into stream until the client goes away
// or ctx ends.
func (s *Server) readFrames(ctx context.Context, wc *wsConn, stream *source.Channel) {
	conn := wc.conn
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := wc.ping(); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	limit := s.maxUploadMB * 1024 * 1024
	conn.SetReadLimit(limit)

	for seq := 1; ; seq++ {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType != websocket.BinaryMessage {
			_ = wc.send(WebSocketMessage{Type: "error", Error: "expected binary image frame"})
			continue
		}
		uploadSizeBytes.Observe(float64(len(data)))

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
			_ = wc.send(WebSocketMessage{Type: "error", Error: "Invalid image format"})
			continue
		}

		frame := scanner.Frame{Image: img, Source: fmt.Sprintf("ws:%d", seq)}
		if err := stream.Push(ctx, frame); err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket frame dropped", "error", err)
			}
			return
		}
	}
}
