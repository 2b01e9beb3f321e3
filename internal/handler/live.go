package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"eth_history_api/internal/domain"
	"eth_history_api/pkg/metrics"
)

const liveWriteWait = 5 * time.Second

// liveBlocks pushes the node's head block every poll interval, starting
// immediately. The poller stops when the client disconnects or the
// server shuts down.
func (h *Handler) liveBlocks(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	metrics.LiveSubscribers.Inc()
	defer metrics.LiveSubscribers.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reads are only drained to notice close frames and dropped connections
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.livePoll)
	defer ticker.Stop()

	for {
		if !h.pushBlock(ctx, conn) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(liveWriteWait))
			return
		case <-ticker.C:
		}
	}
}

// pushBlock reports whether the connection is still usable. A failed fetch
// skips the frame.
func (h *Handler) pushBlock(ctx context.Context, conn *websocket.Conn) bool {
	block, err := h.agg.GetCurrentBlock(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		zap.L().Warn("live feed: fetching block failed", zap.Error(err))
		return true
	}

	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(domain.LiveBlockUpdate{Block: block, ReceivedAt: time.Now().UTC()}); err != nil {
		zap.L().Debug("live feed: write failed", zap.Error(err))
		return false
	}
	return true
}
