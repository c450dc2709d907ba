// Package router classifies a question into a financial intent and answers
// it from the calculator and the caller's session, handing everything else
// to a retrieval and generation fallback.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nidhogg/smart-money/internal/calc"
	"github.com/nidhogg/smart-money/internal/session"
	"go.uber.org/zap"
)

// ErrCollaborator is returned when the fallback could not produce an answer.
var ErrCollaborator = errors.New("router: fallback unavailable")

// Fallback answers questions no rule resolved. history is a copy of the
// session's recent exchanges, oldest first.
type Fallback interface {
	Answer(ctx context.Context, question string, history []session.Exchange) (string, error)
}

// Archiver records transcripts. Failures never fail a turn.
type Archiver interface {
	AppendMessage(ctx context.Context, sessionID, role, content, intent string) error
}

// Config holds the financial assumptions used in answers.
type Config struct {
	TaxRate        float64
	SavingsPercent float64
	DefaultHours   int
}

func (c *Config) applyDefaults() {
	if c.TaxRate <= 0 {
		c.TaxRate = calc.DefaultTaxRate
	}
	if c.SavingsPercent <= 0 {
		c.SavingsPercent = calc.DefaultSavingsPercent
	}
	if c.DefaultHours <= 0 {
		c.DefaultHours = calc.DefaultHoursPerWeek
	}
}

// Reply is the answer to one question and the intent that produced it.
type Reply struct {
	Answer    string `json:"answer"`
	Intent    Intent `json:"intent"`
	NeedsInfo bool   `json:"needs_info,omitempty"`
}

// Router runs questions through the rule table in order.
type Router struct {
	sessions session.Store
	fallback Fallback
	archive  Archiver
	cfg      Config
	rules    []Rule
	metrics  *Metrics
	logger   *zap.Logger
}

// New creates a Router over a session store and a fallback.
func New(sessions session.Store, fallback Fallback, cfg Config, logger *zap.Logger) *Router {
	cfg.applyDefaults()
	r := &Router{
		sessions: sessions,
		fallback: fallback,
		cfg:      cfg,
		metrics:  NewMetrics(),
		logger:   logger,
	}
	r.rules = r.buildRules()
	return r
}

// SetArchiver enables transcript archiving.
func (r *Router) SetArchiver(a Archiver) {
	r.archive = a
}

// Rules returns the dispatch table in priority order.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Config returns the assumptions the router answers with.
func (r *Router) Config() Config {
	return r.cfg
}

// Ask answers question within the session identified by sessionID.
//
// The first rule that resolves wins and its profile change, if any, is
// saved. A non-soft clarification is returned straight away. A soft one is
// kept while later rules are tried and returned in place of the fallback
// if nothing resolves.
func (r *Router) Ask(ctx context.Context, sessionID, question string) (Reply, error) {
	st, err := r.sessions.GetOrCreate(ctx, sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("load session: %w", err)
	}

	turn := &Turn{SessionID: sessionID, Question: question, Salary: st.Salary}
	var deferred *Reply

	for _, rule := range r.rules {
		if !rule.Match(turn) {
			continue
		}
		turn.Answer = ""
		turn.updated = nil

		out, err := rule.Resolve(ctx, turn)
		if err != nil {
			r.metrics.record(rule.Name, "error")
			return Reply{}, fmt.Errorf("resolve %s: %w", rule.Name, err)
		}

		switch out {
		case Resolved:
			if turn.updated != nil {
				if err := r.sessions.UpdateSalary(ctx, sessionID, *turn.updated); err != nil {
					return Reply{}, fmt.Errorf("save salary: %w", err)
				}
			}
			return r.finish(ctx, turn, Reply{Answer: turn.Answer, Intent: rule.Name}), nil
		case NeedsInfo:
			reply := Reply{Answer: turn.Answer, Intent: rule.Name, NeedsInfo: true}
			if !rule.Soft {
				return r.finish(ctx, turn, reply), nil
			}
			if deferred == nil {
				deferred = &reply
			}
		}
	}

	if deferred != nil {
		return r.finish(ctx, turn, *deferred), nil
	}
	return r.askFallback(ctx, turn, st.Memory)
}

func (r *Router) askFallback(ctx context.Context, turn *Turn, history []session.Exchange) (Reply, error) {
	start := time.Now()
	answer, err := r.callFallback(ctx, turn.Question, history)
	if r.metrics != nil {
		r.metrics.FallbackDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.metrics.record(IntentFallback, "error")
		r.logger.Error("fallback failed",
			zap.String("session", turn.SessionID),
			zap.Error(err),
		)
		return Reply{}, fmt.Errorf("%w: %v", ErrCollaborator, err)
	}

	err = r.sessions.AppendExchange(ctx, turn.SessionID, session.Exchange{
		Question: turn.Question,
		Answer:   answer,
	})
	if err != nil {
		r.logger.Warn("append exchange failed", zap.String("session", turn.SessionID), zap.Error(err))
	}
	return r.finish(ctx, turn, Reply{Answer: answer, Intent: IntentFallback}), nil
}

// callFallback turns a panicking collaborator into an error.
func (r *Router) callFallback(ctx context.Context, question string, history []session.Exchange) (answer string, err error) {
	if r.fallback == nil {
		return "", errors.New("no fallback configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("fallback panic: %v", p)
		}
	}()
	return r.fallback.Answer(ctx, question, append([]session.Exchange(nil), history...))
}

func (r *Router) finish(ctx context.Context, turn *Turn, reply Reply) Reply {
	outcome := Resolved.String()
	if reply.NeedsInfo {
		outcome = NeedsInfo.String()
	}
	r.metrics.record(reply.Intent, outcome)
	r.logger.Debug("question routed",
		zap.String("session", turn.SessionID),
		zap.String("intent", string(reply.Intent)),
		zap.String("outcome", outcome),
	)

	if r.archive != nil {
		r.appendArchive(ctx, turn.SessionID, "user", turn.Question, reply.Intent)
		r.appendArchive(ctx, turn.SessionID, "assistant", reply.Answer, reply.Intent)
	}
	return reply
}

func (r *Router) appendArchive(ctx context.Context, sessionID, role, content string, intent Intent) {
	if err := r.archive.AppendMessage(ctx, sessionID, role, content, string(intent)); err != nil {
		r.logger.Warn("archive append failed",
			zap.String("session", sessionID),
			zap.String("role", role),
			zap.Error(err),
		)
	}
}
