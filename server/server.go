// Package server exposes ingestion and question answering over HTTP and a
// WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/pkg/ingest"
	"github.com/xhad/shopsage/pkg/llm"
	"github.com/xhad/shopsage/pkg/processor"
	"github.com/xhad/shopsage/pkg/rag"
)

const (
	maxBodyBytes = 1 << 20
	// maxInFlight bounds concurrent answers per WebSocket connection.
	maxInFlight = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the API is unauthenticated; see CORS settings
	},
}

// Message is the WebSocket envelope in both directions.
type Message struct {
	Type    string      `json:"type"`
	Shop    string      `json:"shop,omitempty"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	DefaultShop string
	// CORSOrigins lists allowed browser origins; empty allows any.
	CORSOrigins []string
}

type StatsReader interface {
	Stats(ctx context.Context, shop string) (models.ShopStats, error)
}

type Ingester interface {
	Ingest(ctx context.Context, shop string, orders []processor.RawOrder) (int, error)
}

type Answerer interface {
	Answer(ctx context.Context, shop, question string, mode rag.Mode) (*models.Answer, error)
}

type OrderSource interface {
	RecentOrders(ctx context.Context, shop, accessToken string, limit int) ([]processor.RawOrder, error)
}

// Deps are the long-lived components a Server dispatches to. They are owned
// by the caller.
type Deps struct {
	Stats   StatsReader
	Ingest  Ingester
	Answers Answerer
	Orders  OrderSource
	// Samples returns the demo order set; defaults to ingest.SampleOrders.
	Samples func() []processor.RawOrder
}

type Server struct {
	config Config
	deps   Deps
}

func New(config Config, deps Deps) *Server {
	if config.DefaultShop == "" {
		config.DefaultShop = "demo-shop"
	}
	if deps.Samples == nil {
		deps.Samples = ingest.SampleOrders
	}
	return &Server{config: config, deps: deps}
}

// Handler returns the routed API wrapped in request logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/ingest/sample", s.handleIngestSample)
	mux.HandleFunc("POST /api/ingest/remote", s.handleIngestRemote)
	mux.HandleFunc("POST /api/ingest/shopify", s.handleIngestRemote)
	mux.HandleFunc("POST /api/recommendations", s.handleRecommendations)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return withRequestLog(withCORS(s.config.CORSOrigins, mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		shop = s.config.DefaultShop
	}
	stats, err := s.deps.Stats.Stats(r.Context(), shop)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"shop":      stats.Shop,
		"orders":    stats.Orders,
		"documents": stats.Documents,
	})
}

func (s *Server) handleIngestSample(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	errs := ValidationErrors{}
	shop := s.shopField(fields, errs)
	if len(errs) > 0 {
		writeError(w, errs)
		return
	}

	n, err := s.deps.Ingest.Ingest(r.Context(), shop, s.deps.Samples())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ingested": n, "shop": shop})
}

// shopField reads the optional shop; absent or empty means the default shop.
func (s *Server) shopField(fields requestFields, errs ValidationErrors) string {
	if shop := fields.optionalString("shop", "", 0, errs); shop != "" {
		return shop
	}
	return s.config.DefaultShop
}

func (s *Server) handleIngestRemote(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	errs := ValidationErrors{}
	shop := fields.requiredString("shop", 3, errs)
	token := fields.requiredString("accessToken", 10, errs)
	limit := fields.optionalInt("limit", 20, 1, 100, errs)
	if len(errs) > 0 {
		writeError(w, errs)
		return
	}

	orders, err := s.deps.Orders.RecentOrders(r.Context(), shop, token, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.deps.Ingest.Ingest(r.Context(), shop, orders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ingested": n, "shop": shop})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	errs := ValidationErrors{}
	shop := s.shopField(fields, errs)
	question := fields.requiredString("question", 3, errs)
	if len(errs) > 0 {
		writeError(w, errs)
		return
	}

	answer, err := s.deps.Answers.Answer(r.Context(), shop, question, rag.ModeRecommendation)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"retrieved": answer.Citations,
		"answer":    answer.Text,
		"valid":     answer.Valid,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	errs := ValidationErrors{}
	shop := s.shopField(fields, errs)
	message := fields.requiredString("message", 1, errs)
	if len(errs) > 0 {
		writeError(w, errs)
		return
	}

	answer, err := s.deps.Answers.Answer(r.Context(), shop, message, rag.ModeChat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"retrieved": answer.Citations,
		"answer":    answer.Text,
	})
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ws := &wsConn{conn: conn}
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup
	defer wg.Wait()
	// In-flight answers are abandoned once the client goes away.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.send(Message{Type: "error", Content: "invalid message: " + err.Error()})
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			s.handleMessage(ctx, ws, msg)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, msg Message) {
	var mode rag.Mode
	var minLen int
	switch msg.Type {
	case "chat":
		mode, minLen = rag.ModeChat, 1
	case "recommendations":
		mode, minLen = rag.ModeRecommendation, 3
	default:
		ws.send(Message{Type: "error", Content: "unknown message type: " + msg.Type})
		return
	}
	if utf8.RuneCountInString(msg.Content) < minLen {
		ws.send(Message{Type: "error", Content: fmt.Sprintf("content: String must contain at least %d character(s)", minLen)})
		return
	}

	shop := msg.Shop
	if shop == "" {
		shop = s.config.DefaultShop
	}

	answer, err := s.deps.Answers.Answer(ctx, shop, msg.Content, mode)
	if err != nil {
		ws.send(Message{Type: "error", Content: err.Error()})
		return
	}

	data := map[string]any{"retrieved": answer.Citations}
	if mode == rag.ModeRecommendation {
		data["valid"] = answer.Valid
	}
	ws.send(Message{Type: "response", Shop: shop, Content: answer.Text, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("Error encoding response: %v", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]any{"ok": false, "error": "encoding response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// writeError maps err onto the API's failure shapes.
func writeError(w http.ResponseWriter, err error) {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": map[string]any{"fieldErrors": verrs},
		})
		return
	}

	body := map[string]any{"ok": false, "error": err.Error()}
	var ierr *ingest.IngestError
	if errors.As(err, &ierr) {
		body["ingested"] = ierr.Ingested
	}

	if ue, ok := llm.AsUpstream(err); ok {
		body["status"] = ue.StatusCode
		body["body"] = ue.Body
		writeJSON(w, http.StatusBadGateway, body)
		return
	}

	log.Printf("Request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, body)
}
