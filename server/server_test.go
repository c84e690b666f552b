package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/pkg/ingest"
	"github.com/xhad/shopsage/pkg/llm"
	"github.com/xhad/shopsage/pkg/processor"
	"github.com/xhad/shopsage/pkg/rag"
)

type fakeStats struct{}

func (fakeStats) Stats(ctx context.Context, shop string) (models.ShopStats, error) {
	return models.ShopStats{Shop: shop, Orders: 3, Documents: 3}, nil
}

type fakeIngester struct {
	shop   string
	orders []processor.RawOrder
	err    error
}

func (f *fakeIngester) Ingest(ctx context.Context, shop string, orders []processor.RawOrder) (int, error) {
	f.shop, f.orders = shop, orders
	if f.err != nil {
		return 0, f.err
	}
	return len(orders), nil
}

type fakeAnswerer struct {
	shop      string
	question  string
	mode      rag.Mode
	err       error
	citations []models.Citation
}

func (f *fakeAnswerer) Answer(ctx context.Context, shop, question string, mode rag.Mode) (*models.Answer, error) {
	f.shop, f.question, f.mode = shop, question, mode
	if f.err != nil {
		return nil, f.err
	}
	citations := f.citations
	if citations == nil {
		citations = []models.Citation{{RefID: "1003", Score: 0.8123}}
	}
	return &models.Answer{
		Citations: citations,
		Text:      `{"insights":[]}`,
		Valid:     mode == rag.ModeRecommendation,
	}, nil
}

type fakeOrders struct {
	token string
	limit int
	err   error
}

func (f *fakeOrders) RecentOrders(ctx context.Context, shop, accessToken string, limit int) ([]processor.RawOrder, error) {
	f.token, f.limit = accessToken, limit
	if f.err != nil {
		return nil, f.err
	}
	return []processor.RawOrder{processor.PlatformOrder{ID: "gid://shopify/Order/1"}}, nil
}

type fixture struct {
	srv     *httptest.Server
	ingest  *fakeIngester
	answers *fakeAnswerer
	orders  *fakeOrders
}

func newFixture(t *testing.T, config Config) *fixture {
	f := &fixture{ingest: &fakeIngester{}, answers: &fakeAnswerer{}, orders: &fakeOrders{}}
	s := New(config, Deps{Stats: fakeStats{}, Ingest: f.ingest, Answers: f.answers, Orders: f.orders})
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealthAndStats(t *testing.T) {
	f := newFixture(t, Config{})

	status, body := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])

	status, body = f.do(t, http.MethodGet, "/api/stats?shop=acme", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "acme", body["shop"])
	assert.EqualValues(t, 3, body["orders"])
	assert.EqualValues(t, 3, body["documents"])

	_, body = f.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, "demo-shop", body["shop"])
}

func TestIngestSample(t *testing.T) {
	f := newFixture(t, Config{})

	status, body := f.do(t, http.MethodPost, "/api/ingest/sample", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"ok": true, "ingested": 3.0, "shop": "demo-shop"}, body)
	assert.Equal(t, "demo-shop", f.ingest.shop)
	assert.Len(t, f.ingest.orders, len(ingest.SampleOrders()))

	_, body = f.do(t, http.MethodPost, "/api/ingest/sample", `{"shop":"acme"}`)
	assert.Equal(t, "acme", body["shop"])
}

func TestIngestSamplePartialFailure(t *testing.T) {
	f := newFixture(t, Config{})
	f.ingest.err = &ingest.IngestError{
		Ingested: 1,
		RefID:    "1002",
		Err:      &llm.UpstreamError{Provider: "ollama", Op: "embeddings", StatusCode: 500, Body: "oom"},
	}

	status, body := f.do(t, http.MethodPost, "/api/ingest/sample", `{}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, false, body["ok"])
	assert.EqualValues(t, 500, body["status"])
	assert.Equal(t, "oom", body["body"])
	assert.EqualValues(t, 1, body["ingested"])
}

func TestIngestRemoteValidation(t *testing.T) {
	f := newFixture(t, Config{})

	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"empty", `{}`, []string{"shop", "accessToken"}},
		{"short values", `{"shop":"ab","accessToken":"short"}`, []string{"shop", "accessToken"}},
		{"limit too big", `{"shop":"acme.myshopify.com","accessToken":"shpat_0123456789","limit":101}`, []string{"limit"}},
		{"limit float", `{"shop":"acme.myshopify.com","accessToken":"shpat_0123456789","limit":2.5}`, []string{"limit"}},
		{"limit string", `{"shop":"acme.myshopify.com","accessToken":"shpat_0123456789","limit":"5"}`, []string{"limit"}},
		{"not an object", `[1,2]`, []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(t, http.MethodPost, "/api/ingest/remote", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, false, body["ok"])

			errObj, ok := body["error"].(map[string]any)
			require.True(t, ok)
			fieldErrors, ok := errObj["fieldErrors"].(map[string]any)
			require.True(t, ok)
			assert.Len(t, fieldErrors, len(tt.fields))
			for _, field := range tt.fields {
				assert.Contains(t, fieldErrors, field)
			}
		})
	}
}

func TestIngestRemote(t *testing.T) {
	f := newFixture(t, Config{})

	status, body := f.do(t, http.MethodPost, "/api/ingest/shopify",
		`{"shop":"acme.myshopify.com","accessToken":"shpat_0123456789"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["ingested"])
	assert.Equal(t, "acme.myshopify.com", body["shop"])
	assert.Equal(t, "shpat_0123456789", f.orders.token)
	assert.Equal(t, 20, f.orders.limit)

	f.orders.err = &llm.UpstreamError{Provider: "shopify", Op: "orders", StatusCode: 401, Body: "bad token"}
	status, body = f.do(t, http.MethodPost, "/api/ingest/remote",
		`{"shop":"acme.myshopify.com","accessToken":"shpat_0123456789","limit":5}`)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.EqualValues(t, 401, body["status"])
	assert.Equal(t, "bad token", body["body"])
	assert.Equal(t, 5, f.orders.limit)
}

func TestRecommendations(t *testing.T) {
	f := newFixture(t, Config{DefaultShop: "fallback-shop"})

	status, body := f.do(t, http.MethodPost, "/api/recommendations", `{"question":"How to cut returns?"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, `{"insights":[]}`, body["answer"])
	assert.Equal(t, []any{map[string]any{"refId": "1003", "score": 0.8123}}, body["retrieved"])

	assert.Equal(t, "fallback-shop", f.answers.shop)
	assert.Equal(t, rag.ModeRecommendation, f.answers.mode)

	status, body = f.do(t, http.MethodPost, "/api/recommendations", `{"question":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"].(map[string]any)["fieldErrors"], "question")

	status, _ = f.do(t, http.MethodPost, "/api/recommendations", `{"shop":"","question":"How to cut returns?"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fallback-shop", f.answers.shop)
}

func TestEmptyShopUsesDefault(t *testing.T) {
	f := newFixture(t, Config{DefaultShop: "fallback-shop"})

	status, _ := f.do(t, http.MethodPost, "/api/chat", `{"shop":"","message":"hello"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fallback-shop", f.answers.shop)

	status, body := f.do(t, http.MethodPost, "/api/ingest/sample", `{"shop":""}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "fallback-shop", body["shop"])
	assert.Equal(t, "fallback-shop", f.ingest.shop)

	status, _ = f.do(t, http.MethodPost, "/api/chat", `{"shop":7,"message":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnencodableResponseIsServerError(t *testing.T) {
	f := newFixture(t, Config{})
	f.answers.citations = []models.Citation{{RefID: "1001", Score: math.NaN()}}

	status, body := f.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "unsupported value")
}

func TestChat(t *testing.T) {
	f := newFixture(t, Config{})

	status, body := f.do(t, http.MethodPost, "/api/chat", `{"shop":"acme","message":"?"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "valid")
	assert.Equal(t, "acme", f.answers.shop)
	assert.Equal(t, "?", f.answers.question)
	assert.Equal(t, rag.ModeChat, f.answers.mode)

	status, _ = f.do(t, http.MethodPost, "/api/chat", `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	f.answers.err = context.DeadlineExceeded
	status, body = f.do(t, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, false, body["ok"])
}

func TestCORS(t *testing.T) {
	f := newFixture(t, Config{CORSOrigins: []string{"http://localhost:5173"}})

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t, Config{})

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(Message{Type: "recommendations", Shop: "acme", Content: "What now?"}))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "response", reply.Type)
	assert.Equal(t, "acme", reply.Shop)
	assert.Equal(t, `{"insights":[]}`, reply.Content)

	data, ok := reply.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["valid"])
	assert.Len(t, data["retrieved"], 1)

	require.NoError(t, conn.WriteJSON(Message{Type: "poem", Content: "x"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "recommendations", Content: "hi"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "error", reply.Type)
	assert.Contains(t, reply.Content, "at least 3")
}

func TestWebSocketReadLimit(t *testing.T) {
	f := newFixture(t, Config{})

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// The server may drop the connection before the write completes.
	_ = conn.WriteJSON(Message{Type: "chat", Content: strings.Repeat("x", maxBodyBytes+1)})

	var reply Message
	assert.Error(t, conn.ReadJSON(&reply))
}

type slowAnswerer struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (a *slowAnswerer) Answer(ctx context.Context, shop, question string, mode rag.Mode) (*models.Answer, error) {
	n := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		seen := a.maxSeen.Load()
		if n <= seen || a.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return &models.Answer{Text: question}, nil
}

func TestWebSocketBoundsInFlightAnswers(t *testing.T) {
	answers := &slowAnswerer{}
	s := New(Config{}, Deps{Stats: fakeStats{}, Ingest: &fakeIngester{}, Answers: answers, Orders: &fakeOrders{}})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	const sent = maxInFlight * 3
	for i := 0; i < sent; i++ {
		require.NoError(t, conn.WriteJSON(Message{Type: "chat", Content: "question"}))
	}
	for i := 0; i < sent; i++ {
		var reply Message
		require.NoError(t, conn.ReadJSON(&reply))
		assert.Equal(t, "response", reply.Type)
	}
	assert.LessOrEqual(t, int(answers.maxSeen.Load()), maxInFlight)
	assert.Positive(t, answers.maxSeen.Load())
}
