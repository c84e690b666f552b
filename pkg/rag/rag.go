// Package rag answers merchant questions from the documents of a shop.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/internal/types"
)

// DefaultTopK is how many documents are placed in the prompt context.
const DefaultTopK = 6

// Mode selects the prompt pair and the citation format.
type Mode string

const (
	ModeRecommendation Mode = "recommendation"
	ModeChat           Mode = "chat"
)

// Searcher ranks stored documents against a query embedding.
type Searcher interface {
	Search(ctx context.Context, shop string, query []float32, k int) ([]models.ScoredDocument, error)
}

type Config struct {
	TopK                     int
	RecommendationSystemText string
	ChatSystemText           string
}

// Orchestrator embeds the question, retrieves context and calls the
// generation provider.
type Orchestrator struct {
	config    Config
	embedder  types.Embedder
	searcher  Searcher
	generator types.Generator
}

func NewOrchestrator(embedder types.Embedder, searcher Searcher, generator types.Generator) *Orchestrator {
	return NewWithConfig(Config{}, embedder, searcher, generator)
}

func NewWithConfig(config Config, embedder types.Embedder, searcher Searcher, generator types.Generator) *Orchestrator {
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.RecommendationSystemText == "" {
		config.RecommendationSystemText = recommendationSystemPrompt
	}
	if config.ChatSystemText == "" {
		config.ChatSystemText = chatSystemPrompt
	}
	return &Orchestrator{
		config:    config,
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
	}
}

// Answer runs one retrieval round for question in the given mode. The
// generated text is returned verbatim; provider errors are returned as is.
func (o *Orchestrator) Answer(ctx context.Context, shop, question string, mode Mode) (*models.Answer, error) {
	if mode != ModeRecommendation && mode != ModeChat {
		return nil, fmt.Errorf("unknown answer mode %q", mode)
	}

	query, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	docs, err := o.searcher.Search(ctx, shop, query, o.config.TopK)
	if err != nil {
		return nil, err
	}

	messages := o.messages(shop, question, mode, docs)
	text, err := o.generator.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	answer := &models.Answer{
		Citations: make([]models.Citation, len(docs)),
		Text:      text,
	}
	for i, d := range docs {
		score := d.Score
		if mode == ModeRecommendation {
			score = round4(score)
		}
		answer.Citations[i] = models.Citation{RefID: d.RefID, Score: score}
	}
	if mode == ModeRecommendation {
		answer.Valid = ValidRecommendation(text)
	}
	return answer, nil
}

func (o *Orchestrator) messages(shop, question string, mode Mode, docs []models.ScoredDocument) []types.ChatMessage {
	block := ContextBlock(docs)
	if mode == ModeRecommendation {
		return []types.ChatMessage{
			{Role: types.RoleSystem, Content: o.config.RecommendationSystemText},
			{Role: types.RoleUser, Content: fmt.Sprintf(recommendationUserTemplate, question, shop) + block},
		}
	}
	return []types.ChatMessage{
		{Role: types.RoleSystem, Content: o.config.ChatSystemText},
		{Role: types.RoleUser, Content: question + block},
	}
}

// ContextBlock numbers the retrieved texts from 1 in rank order. It is
// empty when nothing was retrieved.
func ContextBlock(docs []models.ScoredDocument) string {
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = "[" + strconv.Itoa(i+1) + "] " + d.Text
	}
	return "\n\nContext:\n" + strings.Join(parts, "\n\n")
}

type recommendationShape struct {
	Insights           *[]string `json:"insights"`
	RecommendedActions *[]struct {
		Title   string   `json:"title"`
		Why     string   `json:"why"`
		Steps   []string `json:"steps"`
		Metrics []string `json:"metrics"`
	} `json:"recommended_actions"`
	FollowUpQuestions *[]string `json:"follow_up_questions"`
}

// ValidRecommendation reports whether text is a JSON object carrying the
// three recommendation keys. A surrounding markdown code fence is ignored.
func ValidRecommendation(text string) bool {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var shape recommendationShape
	if err := json.Unmarshal([]byte(text), &shape); err != nil {
		return false
	}
	return shape.Insights != nil && shape.RecommendedActions != nil && shape.FollowUpQuestions != nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
