package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nidhogg/smart-money/internal/router"
	"github.com/nidhogg/smart-money/internal/session"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	mu      sync.Mutex
	handler MessageHandler
	sent    []*OutboundMessage
	sentCh  chan struct{}
	closed  bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{sentCh: make(chan struct{}, 16)}
}

func (f *fakeAdapter) Platform() string { return "fake" }
func (f *fakeAdapter) Connect(context.Context) error { return nil }
func (f *fakeAdapter) OnMessage(h MessageHandler) { f.handler = h }
func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeAdapter) Send(_ context.Context, msg *OutboundMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	f.sentCh <- struct{}{}
	return nil
}

func (f *fakeAdapter) deliver(channel, user, text string) {
	f.handler(&InboundMessage{
		Platform:  "fake",
		ChannelID: channel,
		UserID:    user,
		Content:   text,
		ReplyTo:   "ts-1",
	})
}

func (f *fakeAdapter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.sentCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no reply sent")
	}
}

func (f *fakeAdapter) last() *OutboundMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type stubAsker struct {
	err    error
	panics bool
}

func (s stubAsker) Ask(context.Context, string, string) (router.Reply, error) {
	if s.panics {
		panic("boom")
	}
	return router.Reply{}, s.err
}

type noFallback struct{}

func (noFallback) Answer(context.Context, string, []session.Exchange) (string, error) {
	return "", errors.New("no model")
}

func newTestGateway(t *testing.T) (*Gateway, *fakeAdapter, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(0)
	r := router.New(store, noFallback{}, router.Config{}, zap.NewNop())
	g := NewGateway(r, zap.NewNop())
	a := newFakeAdapter()
	g.Register(a)
	return g, a, store
}

func TestSessionID(t *testing.T) {
	m := &InboundMessage{Platform: "slack", ChannelID: "C1", UserID: "U1"}
	if got := m.SessionID(); got != "slack:C1:U1" {
		t.Errorf("got %q", got)
	}
}

func TestGatewayAnswersInThread(t *testing.T) {
	g, a, store := newTestGateway(t)
	defer g.Close()

	a.deliver("C1", "U1", "I earn $20 per hour and work 40 hours per week")
	a.wait(t)

	out := a.last()
	if out.ChannelID != "C1" || out.ReplyTo != "ts-1" {
		t.Errorf("reply routed to %s/%s", out.ChannelID, out.ReplyTo)
	}
	if !strings.Contains(out.Content, "$2773.33") {
		t.Errorf("got %q", out.Content)
	}
	p, _ := store.GetSalary(context.Background(), "fake:C1:U1")
	if p == nil || p.Monthly != 3466.67 {
		t.Errorf("profile not stored under platform session id: %+v", p)
	}
}

func TestGatewaySessionsPerUser(t *testing.T) {
	g, a, _ := newTestGateway(t)
	defer g.Close()

	a.deliver("C1", "U1", "I earn $20 per hour and work 40 hours per week")
	a.wait(t)
	a.deliver("C1", "U2", "how should I budget")
	a.wait(t)

	if !strings.Contains(a.last().Content, "income") {
		t.Errorf("second user should not see first user's salary: %q", a.last().Content)
	}
}

func TestGatewayFailureReplies(t *testing.T) {
	for name, tc := range map[string]struct {
		asker Asker
		want  string
	}{
		"error": {stubAsker{err: errors.New("down")}, msgFailure},
		"panic": {stubAsker{panics: true}, msgApology},
	} {
		g := NewGateway(tc.asker, zap.NewNop())
		a := newFakeAdapter()
		g.Register(a)
		a.deliver("C1", "U1", "hello")
		a.wait(t)
		if got := a.last().Content; got != tc.want {
			t.Errorf("%s: got %q, want %q", name, got, tc.want)
		}
		g.Close()
	}
}

func TestGatewayIgnoresEmptyAndClosed(t *testing.T) {
	g, a, _ := newTestGateway(t)
	a.deliver("C1", "U1", "   ")
	g.Close()
	a.deliver("C1", "U1", "how should I budget")

	if len(a.sent) != 0 {
		t.Errorf("got %d replies, want 0", len(a.sent))
	}
	if !a.closed {
		t.Error("adapter not closed")
	}
}

func TestStatusAll(t *testing.T) {
	g, _, _ := newTestGateway(t)
	g.Register(NewDiscordAdapter("token", zap.NewNop()))
	statuses := g.StatusAll()
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	for _, s := range statuses {
		if s.Connected {
			t.Errorf("%s should not be connected", s.Platform)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 {
		t.Fatalf("got %d parts", len(got))
	}
	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	parts := splitMessage(long, 10)
	if len(parts) != 2 || parts[0] != strings.Repeat("a", 8)+"\n" {
		t.Errorf("got %q", parts)
	}
	if strings.Join(parts, "") != long {
		t.Error("split lost content")
	}
}
