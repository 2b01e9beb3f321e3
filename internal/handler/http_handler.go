package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"eth_history_api/internal/blocktime"
	"eth_history_api/internal/domain"
	apierr "eth_history_api/internal/errors"
	"eth_history_api/internal/usecase"
)

const (
	ConfidenceExact       = "exact"
	ConfidenceApproximate = "approximate"

	DefaultLivePoll = 12 * time.Second
)

type Handler struct {
	agg       *usecase.Aggregator
	estimator *blocktime.Estimator
	livePoll  time.Duration
	upgrader  websocket.Upgrader

	stop     chan struct{}
	stopOnce sync.Once
}

func NewHandler(agg *usecase.Aggregator, estimator *blocktime.Estimator, livePoll time.Duration) *Handler {
	if estimator == nil {
		estimator = blocktime.Default()
	}
	if livePoll <= 0 {
		livePoll = DefaultLivePoll
	}
	return &Handler{
		agg:       agg,
		estimator: estimator,
		livePoll:  livePoll,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		stop: make(chan struct{}),
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/timeline", h.getTimeline)
		r.Get("/timeline/{id}", h.getEvent)
		r.Get("/eips", h.getEips)
		r.Get("/eips/{number}", h.getEip)

		r.Get("/block/at/{timestamp}", h.getBlockAt)
		r.Get("/block/anchors", h.getAnchors)
		r.Get("/block/current", h.getCurrentBlock)
		r.Get("/block/{number}/timestamp", h.getBlockTimestamp)
		r.Get("/blocks/live", h.liveBlocks)

		r.Get("/sources/status", h.getSourcesStatus)
		r.Get("/l2", h.getL2Chains)
		r.Post("/cache/invalidate/{collection}", h.invalidate)
	})
}

// CloseLive ends every open live feed. Hijacked connections are not tracked
// by http.Server, so this is registered as a shutdown hook.
func (h *Handler) CloseLive() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Handler) getTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := h.agg.GetTimeline(r.Context())
	if err != nil {
		writeError(w, err, "timeline")
		return
	}
	writeJSON(w, events)
}

func (h *Handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, ok, err := h.agg.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, err, "timeline event")
		return
	}
	if !ok {
		writeErrorJSON(w, apierr.ErrNotFound.StatusCode(), "event not found")
		return
	}
	writeJSON(w, event)
}

func (h *Handler) getEips(w http.ResponseWriter, r *http.Request) {
	eips, err := h.agg.GetEips(r.Context())
	if err != nil {
		writeError(w, err, "eips")
		return
	}
	writeJSON(w, eips)
}

func (h *Handler) getEip(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.ParseUint(chi.URLParam(r, "number"), 10, 32)
	if err != nil {
		zap.L().Debug("invalid eip number", zap.Error(err))
		writeErrorJSON(w, apierr.ErrInvalidParam.StatusCode(), "invalid eip number")
		return
	}
	eip, ok, err := h.agg.GetEip(r.Context(), uint32(n))
	if err != nil {
		writeError(w, err, "eip")
		return
	}
	if !ok {
		writeErrorJSON(w, apierr.ErrNotFound.StatusCode(), "eip not found")
		return
	}
	writeJSON(w, eip)
}

type blockAtResponse struct {
	Timestamp      int64  `json:"timestamp"`
	EstimatedBlock uint64 `json:"estimated_block"`
	Confidence     string `json:"confidence"`
}

func (h *Handler) getBlockAt(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		writeErrorJSON(w, apierr.ErrInvalidParam.StatusCode(), "invalid timestamp")
		return
	}
	writeJSON(w, blockAtResponse{
		Timestamp:      ts,
		EstimatedBlock: h.estimator.TimestampToBlock(ts),
		Confidence:     confidence(blocktime.IsExact(ts)),
	})
}

type blockTimestampResponse struct {
	Block              uint64 `json:"block"`
	EstimatedTimestamp int64  `json:"estimated_timestamp"`
	Confidence         string `json:"confidence"`
}

func (h *Handler) getBlockTimestamp(w http.ResponseWriter, r *http.Request) {
	block, err := strconv.ParseUint(chi.URLParam(r, "number"), 10, 64)
	if err != nil {
		writeErrorJSON(w, apierr.ErrInvalidParam.StatusCode(), "invalid block number")
		return
	}
	writeJSON(w, blockTimestampResponse{
		Block:              block,
		EstimatedTimestamp: h.estimator.BlockToTimestamp(block),
		Confidence:         confidence(block >= blocktime.MergeBlock),
	})
}

func confidence(exact bool) string {
	if exact {
		return ConfidenceExact
	}
	return ConfidenceApproximate
}

func (h *Handler) getAnchors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.estimator.Anchors())
}

func (h *Handler) getCurrentBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.agg.GetCurrentBlock(r.Context())
	if err != nil {
		writeError(w, err, "current block")
		return
	}
	writeJSON(w, block)
}

func (h *Handler) getSourcesStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.agg.GetStatus())
}

func (h *Handler) getL2Chains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, domain.L2Chains())
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	if err := h.agg.Invalidate(collection); err != nil {
		writeError(w, err, "invalidate")
		return
	}
	writeJSON(w, map[string]string{"invalidated": collection})
}

// writeError maps upstream failures onto the API's status codes. Timeouts
// win over the wrapping error's own status.
func writeError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, context.Canceled) {
		zap.L().Debug("client went away", zap.String("op", what))
		return
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		zap.L().Warn("upstream timed out", zap.String("op", what), zap.Error(err))
		writeErrorJSON(w, apierr.ErrRequestTimeout.StatusCode(), apierr.ErrRequestTimeout.Error())
		return
	}
	var he apierr.HTTPError
	if errors.As(err, &he) {
		zap.L().Warn("request failed", zap.String("op", what), zap.Error(err))
		writeErrorJSON(w, he.StatusCode(), he.Error())
		return
	}
	zap.L().Error("unexpected error", zap.String("op", what), zap.Error(err))
	writeErrorJSON(w, apierr.ErrInternal.StatusCode(), apierr.ErrInternal.Error())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to write JSON response", zap.Error(err))
	}
}

func writeErrorJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		zap.L().Error("failed to write JSON error response", zap.Error(err))
	}
}
