package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nidhogg/smart-money/internal/provider"
	"github.com/nidhogg/smart-money/internal/session"
	"go.uber.org/zap"
)

// ErrUnavailable wraps every failure to produce a fallback answer.
var ErrUnavailable = errors.New("rag: answer unavailable")

// DefaultSystemPrompt frames the model as a financial literacy assistant.
const DefaultSystemPrompt = "You are Smart Money, a friendly financial literacy assistant. " +
	"Answer questions about budgeting, saving, credit and investing in plain language. " +
	"Use the retrieved context when it is relevant and say so when you are unsure. " +
	"Do not give personalised investment advice."

// Chatter is the slice of provider.Router the adapter needs.
type Chatter interface {
	Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error)
}

// Adapter answers a question from retrieved context, the session's recent
// exchanges and a chat model.
type Adapter struct {
	searcher     Searcher
	llm          Chatter
	systemPrompt string
	maxTokens    int
	logger       *zap.Logger
}

// NewAdapter creates an Adapter. searcher may be nil to answer without
// retrieval.
func NewAdapter(searcher Searcher, llm Chatter, logger *zap.Logger) *Adapter {
	return &Adapter{
		searcher:     searcher,
		llm:          llm,
		systemPrompt: DefaultSystemPrompt,
		maxTokens:    512,
		logger:       logger,
	}
}

// SetSystemPrompt overrides DefaultSystemPrompt.
func (a *Adapter) SetSystemPrompt(p string) {
	if strings.TrimSpace(p) != "" {
		a.systemPrompt = p
	}
}

// SetMaxTokens caps the answer length.
func (a *Adapter) SetMaxTokens(n int) {
	if n > 0 {
		a.maxTokens = n
	}
}

// Answer never panics. A failed retrieval only costs the context; a failed
// or empty generation returns ErrUnavailable.
func (a *Adapter) Answer(ctx context.Context, question string, history []session.Exchange) (answer string, err error) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Error("fallback panicked", zap.Any("panic", p))
			answer, err = "", fmt.Errorf("%w: panic: %v", ErrUnavailable, p)
		}
	}()

	var results []Result
	if a.searcher != nil {
		results, err = a.searcher.Retrieve(ctx, question)
		if err != nil {
			a.logger.Warn("retrieval failed, answering without context", zap.Error(err))
			results, err = nil, nil
		}
	}

	resp, err := a.llm.Chat(ctx, &provider.ChatRequest{
		Messages:  a.buildMessages(question, history, results),
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		a.logger.Error("generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return text, nil
}

func (a *Adapter) buildMessages(question string, history []session.Exchange, results []Result) []provider.Message {
	msgs := make([]provider.Message, 0, 2*len(history)+3)
	msgs = append(msgs, provider.Message{Role: "system", Content: a.systemPrompt})
	if ctxText := FormatContext(results); ctxText != "" {
		msgs = append(msgs, provider.Message{Role: "system", Content: ctxText})
	}
	for _, ex := range history {
		msgs = append(msgs,
			provider.Message{Role: "user", Content: ex.Question},
			provider.Message{Role: "assistant", Content: ex.Answer},
		)
	}
	return append(msgs, provider.Message{Role: "user", Content: question})
}
