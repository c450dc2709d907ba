// Package gateway relays chat platform messages to the assistant.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nidhogg/smart-money/internal/router"
	"go.uber.org/zap"
)

const (
	msgApology = "Something went wrong. Please try again or clarify your query."
	msgFailure = "Something went wrong."
)

// Asker answers a question within a session.
type Asker interface {
	Ask(ctx context.Context, sessionID, question string) (router.Reply, error)
}

// Gateway manages platform adapters and answers every inbound message on
// its own goroutine.
type Gateway struct {
	adapters map[string]Adapter
	asker    Asker
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewGateway creates a gateway manager.
func NewGateway(asker Asker, logger *zap.Logger) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		adapters: make(map[string]Adapter),
		asker:    asker,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
	}
}

// Register adds an adapter and wires its message handler.
func (g *Gateway) Register(adapter Adapter) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := adapter.Platform()
	g.adapters[platform] = adapter
	adapter.OnMessage(func(msg *InboundMessage) {
		g.mu.RLock()
		if g.closed {
			g.mu.RUnlock()
			return
		}
		g.inflight.Add(1)
		g.mu.RUnlock()
		go func() {
			defer g.inflight.Done()
			g.handle(g.ctx, adapter, msg)
		}()
	})
	g.logger.Info("registered gateway adapter", zap.String("platform", platform))
}

// handle answers msg and posts the reply back where it came from.
func (g *Gateway) handle(ctx context.Context, adapter Adapter, msg *InboundMessage) {
	question := strings.TrimSpace(msg.Content)
	if question == "" {
		return
	}

	answer := g.answer(ctx, msg.SessionID(), question)
	out := &OutboundMessage{
		Platform:  msg.Platform,
		ChannelID: msg.ChannelID,
		Content:   answer,
		ReplyTo:   msg.ReplyTo,
	}
	if err := adapter.Send(ctx, out); err != nil {
		g.logger.Error("gateway reply failed",
			zap.String("platform", msg.Platform),
			zap.String("channel", msg.ChannelID),
			zap.Error(err))
	}
}

func (g *Gateway) answer(ctx context.Context, sessionID, question string) (answer string) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("gateway ask panic", zap.String("session", sessionID), zap.Any("panic", rec))
			answer = msgApology
		}
	}()
	reply, err := g.asker.Ask(ctx, sessionID, question)
	if err != nil {
		g.logger.Error("gateway ask failed", zap.String("session", sessionID), zap.Error(err))
		return msgFailure
	}
	return reply.Answer
}

// ConnectAll starts all registered adapters.
func (g *Gateway) ConnectAll(ctx context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for platform, adapter := range g.adapters {
		if err := adapter.Connect(ctx); err != nil {
			g.logger.Error("adapter connect failed",
				zap.String("platform", platform), zap.Error(err))
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		g.logger.Info("adapter connected", zap.String("platform", platform))
	}
	return nil
}

// Close stops accepting messages, waits for in-flight replies and shuts
// down all adapters.
func (g *Gateway) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.inflight.Wait()
	g.cancel()

	g.mu.RLock()
	defer g.mu.RUnlock()
	for platform, adapter := range g.adapters {
		if err := adapter.Close(); err != nil {
			g.logger.Error("adapter close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}

type statuser interface {
	Status() AdapterStatus
}

// StatusAll reports the state of every adapter that tracks it.
func (g *Gateway) StatusAll() []AdapterStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]AdapterStatus, 0, len(g.adapters))
	for platform, a := range g.adapters {
		if s, ok := a.(statuser); ok {
			out = append(out, s.Status())
			continue
		}
		out = append(out, AdapterStatus{Platform: platform})
	}
	return out
}
