package handler_test

import (
	"context"
	"encoding/json"
	stdErr "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eth_history_api/internal/blocktime"
	"eth_history_api/internal/cache"
	"eth_history_api/internal/domain"
	apierr "eth_history_api/internal/errors"
	"eth_history_api/internal/handler"
	"eth_history_api/internal/usecase"
)

type mockEips struct {
	eips []domain.Eip
	err  error
}

func (m *mockEips) FetchEips(ctx context.Context) ([]domain.Eip, error) { return m.eips, m.err }
func (m *mockEips) FetchEipEvents(ctx context.Context) ([]domain.TimelineEvent, error) {
	return nil, nil
}

type mockResearch struct{}

func (m *mockResearch) FetchTopTopics(ctx context.Context, limit int) ([]domain.ResearchTopic, error) {
	return nil, stdErr.New("ethresear.ch unreachable")
}
func (m *mockResearch) FetchCategory(ctx context.Context, slug string) ([]domain.ResearchTopic, error) {
	return nil, stdErr.New("ethresear.ch unreachable")
}
func (m *mockResearch) TopicsToEvents(topics []domain.ResearchTopic) []domain.TimelineEvent {
	return nil
}

type mockBlocks struct {
	err   error
	calls atomic.Int32
}

func (m *mockBlocks) FetchCurrentBlock(ctx context.Context) (domain.BlockInfo, error) {
	n := m.calls.Add(1)
	if m.err != nil {
		return domain.BlockInfo{}, m.err
	}
	return domain.BlockInfo{Number: 21_000_000 + uint64(n), Hash: "0xabc"}, nil
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func newRouter(t *testing.T, eips *mockEips, blocks *mockBlocks) (*chi.Mux, *handler.Handler) {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())

	tc, err := cache.New[string, []domain.TimelineEvent](cache.Options{})
	require.NoError(t, err)
	ec, err := cache.New[string, []domain.Eip](cache.Options{})
	require.NoError(t, err)

	agg := usecase.NewAggregator(eips, &mockResearch{}, blocks, tc, ec, usecase.AggregatorConfig{})
	h := handler.NewHandler(agg, blocktime.Default(), 20*time.Millisecond)
	r := chi.NewRouter()
	h.Register(r)
	return r, h
}

func do(r http.Handler, method, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, url, nil))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestTimelineRoutes(t *testing.T) {
	r, _ := newRouter(t, &mockEips{}, &mockBlocks{})

	rec := do(r, "GET", "/api/timeline")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []domain.TimelineEvent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&events))
	require.Len(t, events, 3)
	assert.Equal(t, "frontier-launch", events[0].ID)

	rec = do(r, "GET", "/api/timeline/the-merge")
	require.Equal(t, http.StatusOK, rec.Code)
	var ev domain.TimelineEvent
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ev))
	assert.Equal(t, "The Merge", ev.Title)

	rec = do(r, "GET", "/api/timeline/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "event not found", errorBody(t, rec))
}

func TestEipRoutes(t *testing.T) {
	r, _ := newRouter(t, &mockEips{eips: []domain.Eip{domain.NewEip(1), domain.NewEip(1559)}}, &mockBlocks{})

	rec := do(r, "GET", "/api/eips")
	require.Equal(t, http.StatusOK, rec.Code)
	var eips []domain.Eip
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&eips))
	assert.Len(t, eips, 2)

	cases := []struct {
		url        string
		wantStatus int
		wantErr    string
	}{
		{"/api/eips/1559", http.StatusOK, ""},
		{"/api/eips/7702", http.StatusNotFound, "eip not found"},
		{"/api/eips/abc", http.StatusBadRequest, "invalid eip number"},
		{"/api/eips/99999999999", http.StatusBadRequest, "invalid eip number"},
	}
	for _, c := range cases {
		rec := do(r, "GET", c.url)
		assert.Equal(t, c.wantStatus, rec.Code, c.url)
		if c.wantErr != "" {
			assert.Equal(t, c.wantErr, errorBody(t, rec), c.url)
		}
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantErr    string
	}{
		{"upstream status", &apierr.UpstreamError{Source: "GitHub (EIPs)", Status: 403}, http.StatusBadGateway, "GitHub (EIPs): upstream returned status 403"},
		{"decode", &apierr.DecodeError{Field: "body", Err: stdErr.New("unexpected end")}, http.StatusBadGateway, "decode body: unexpected end"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"net timeout", &apierr.UpstreamError{Source: "GitHub (EIPs)", Err: timeoutErr{}}, http.StatusGatewayTimeout, "request timed out"},
		{"unknown", stdErr.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r, _ := newRouter(t, &mockEips{err: c.err}, &mockBlocks{})
			rec := do(r, "GET", "/api/eips")
			assert.Equal(t, c.wantStatus, rec.Code)
			assert.Equal(t, c.wantErr, errorBody(t, rec))
		})
	}
}

func TestBlockEstimationRoutes(t *testing.T) {
	r, _ := newRouter(t, &mockEips{}, &mockBlocks{})

	var at struct {
		Timestamp      int64  `json:"timestamp"`
		EstimatedBlock uint64 `json:"estimated_block"`
		Confidence     string `json:"confidence"`
	}
	rec := do(r, "GET", "/api/block/at/1663224299")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&at))
	assert.Equal(t, uint64(15_537_404), at.EstimatedBlock)
	assert.Equal(t, "exact", at.Confidence)

	rec = do(r, "GET", "/api/block/at/1438269973")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&at))
	assert.Equal(t, uint64(0), at.EstimatedBlock)
	assert.Equal(t, "approximate", at.Confidence)

	rec = do(r, "GET", "/api/block/at/yesterday")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var ts struct {
		Block              uint64 `json:"block"`
		EstimatedTimestamp int64  `json:"estimated_timestamp"`
		Confidence         string `json:"confidence"`
	}
	rec = do(r, "GET", "/api/block/15537394/timestamp")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ts))
	assert.Equal(t, blocktime.MergeTimestamp, ts.EstimatedTimestamp)
	assert.Equal(t, "exact", ts.Confidence)

	rec = do(r, "GET", "/api/block/-1/timestamp")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, "GET", "/api/block/anchors")
	require.Equal(t, http.StatusOK, rec.Code)
	var anchors []blocktime.Anchor
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&anchors))
	assert.Equal(t, blocktime.MainnetAnchors, anchors)
}

func TestCurrentBlock(t *testing.T) {
	blocks := &mockBlocks{}
	r, _ := newRouter(t, &mockEips{}, blocks)

	rec := do(r, "GET", "/api/block/current")
	require.Equal(t, http.StatusOK, rec.Code)
	var b domain.BlockInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
	assert.Equal(t, uint64(21_000_001), b.Number)

	blocks.err = &apierr.RpcError{Code: -32000, Message: "header not found"}
	rec = do(r, "GET", "/api/block/current")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "RPC error: header not found (-32000)", errorBody(t, rec))
}

func TestStatusAndStaticRoutes(t *testing.T) {
	r, _ := newRouter(t, &mockEips{}, &mockBlocks{})

	_ = do(r, "GET", "/api/timeline")
	rec := do(r, "GET", "/api/sources/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var st []domain.SourceStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	require.Len(t, st, 4)
	for _, s := range st {
		if s.Name == domain.SourceEthResearch {
			assert.False(t, s.Healthy)
			assert.Equal(t, "ethresear.ch unreachable", s.Error)
		}
	}

	rec = do(r, "GET", "/api/l2")
	require.Equal(t, http.StatusOK, rec.Code)
	var chains []domain.L2Chain
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chains))
	assert.Len(t, chains, len(domain.L2Chains()))
}

func TestInvalidateRoute(t *testing.T) {
	r, _ := newRouter(t, &mockEips{}, &mockBlocks{})

	rec := do(r, "POST", "/api/cache/invalidate/timeline")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, "POST", "/api/cache/invalidate/blocks")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown collection", errorBody(t, rec))

	rec = do(r, "GET", "/api/cache/invalidate/timeline")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func dialLive(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/blocks/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestLiveBlocks_PushesUpdates(t *testing.T) {
	blocks := &mockBlocks{}
	r, h := newRouter(t, &mockEips{}, blocks)
	srv := httptest.NewServer(r)
	defer srv.Close()
	defer h.CloseLive()

	conn := dialLive(t, srv)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second domain.LiveBlockUpdate
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, uint64(21_000_001), first.Block.Number)
	assert.Greater(t, second.Block.Number, first.Block.Number)
	assert.False(t, first.ReceivedAt.IsZero())
}

func TestLiveBlocks_StopsPollingOnDisconnect(t *testing.T) {
	blocks := &mockBlocks{}
	r, h := newRouter(t, &mockEips{}, blocks)
	srv := httptest.NewServer(r)
	defer srv.Close()
	defer h.CloseLive()

	conn := dialLive(t, srv)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u domain.LiveBlockUpdate
	require.NoError(t, conn.ReadJSON(&u))
	require.NoError(t, conn.Close())

	// give the server side a few poll intervals to notice
	time.Sleep(100 * time.Millisecond)
	settled := blocks.calls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, blocks.calls.Load())
}

func TestLiveBlocks_ClosedOnShutdown(t *testing.T) {
	r, h := newRouter(t, &mockEips{}, &mockBlocks{})
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialLive(t, srv)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var u domain.LiveBlockUpdate
	require.NoError(t, conn.ReadJSON(&u))
	h.CloseLive()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), err.Error())
			return
		}
	}
}
