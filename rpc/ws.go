package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"inviteregistry/core/types"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBatchSize    = 100
)

// handleEventsWS streams logged events starting at the "from" query sequence,
// then follows new commits until the client disconnects.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid from cursor", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	// The server write timeout must not cut long-lived streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, from); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	for {
		committed := s.node.Committed()
		batch, err := s.node.Events(cursor, wsBatchSize)
		if err != nil {
			return err
		}
		for _, evt := range batch {
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
			cursor = evt.Sequence + 1
		}
		if len(batch) == wsBatchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-committed:
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.LoggedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
