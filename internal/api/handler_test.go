package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nidhogg/smart-money/internal/calc"
	"github.com/nidhogg/smart-money/internal/gateway"
	"github.com/nidhogg/smart-money/internal/router"
	"github.com/nidhogg/smart-money/internal/session"
	"go.uber.org/zap"
)

type fakeFallback struct {
	answer string
	err    error
}

func (f *fakeFallback) Answer(context.Context, string, []session.Exchange) (string, error) {
	return f.answer, f.err
}

type panicAsker struct{}

func (panicAsker) Ask(context.Context, string, string) (router.Reply, error) {
	panic("boom")
}

type client struct {
	t    *testing.T
	srv  *httptest.Server
	http *http.Client
}

func newTestServer(t *testing.T, fb *fakeFallback) *client {
	t.Helper()
	store := session.NewMemoryStore(0)
	r := router.New(store, fb, router.Config{}, zap.NewNop())
	h := NewHandler(r, store, NewCookies("", "test-secret"), zap.NewNop())
	return newClient(t, h)
}

func newClient(t *testing.T, h *Handler) *client {
	t.Helper()
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	jar, _ := cookiejar.New(nil)
	return &client{t: t, srv: srv, http: &http.Client{Jar: jar}}
}

func (c *client) postJSON(path, body string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Post(c.srv.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (c *client) getJSON(path string) *http.Response {
	c.t.Helper()
	resp, err := c.http.Get(c.srv.URL + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func (c *client) ask(question string) (int, map[string]string) {
	c.t.Helper()
	b, _ := json.Marshal(map[string]string{"question": question})
	resp := c.postJSON("/ask", string(b))
	var out map[string]string
	decodeJSON(c.t, resp, &out)
	return resp.StatusCode, out
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	resp := c.getJSON("/api/health")
	var body map[string]string
	decodeJSON(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("got %d %v", resp.StatusCode, body)
	}
}

func TestHealthReportsDependencies(t *testing.T) {
	store := session.NewMemoryStore(0)
	r := router.New(store, &fakeFallback{}, router.Config{}, zap.NewNop())
	h := NewHandler(r, store, NewCookies("", "test-secret"), zap.NewNop())
	h.AddHealthCheck("llm", func(context.Context) error { return nil })
	h.AddHealthCheck("postgres", func(context.Context) error { return errors.New("connection refused") })
	c := newClient(t, h)

	resp := c.getJSON("/api/health")
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, resp, &body)
	if resp.StatusCode != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Fatalf("got %d %+v, want 503 degraded", resp.StatusCode, body)
	}
	if body.Checks["llm"] != "ok" || body.Checks["postgres"] != "connection refused" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestHealthChecksPass(t *testing.T) {
	store := session.NewMemoryStore(0)
	r := router.New(store, &fakeFallback{}, router.Config{}, zap.NewNop())
	h := NewHandler(r, store, NewCookies("", "test-secret"), zap.NewNop())
	h.AddHealthCheck("llm", func(context.Context) error { return nil })
	c := newClient(t, h)

	resp := c.getJSON("/api/health")
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeJSON(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body.Status != "ok" || body.Checks["llm"] != "ok" {
		t.Errorf("got %d %+v", resp.StatusCode, body)
	}
}

func TestSecureCookieFlag(t *testing.T) {
	store := session.NewMemoryStore(0)
	r := router.New(store, &fakeFallback{answer: "hi"}, router.Config{}, zap.NewNop())
	cookies := NewCookies("", "test-secret")
	cookies.SetSecure(true)
	c := newClient(t, NewHandler(r, store, cookies, zap.NewNop()))

	resp := c.postJSON("/ask", `{"question":"hello"}`)
	resp.Body.Close()
	for _, ck := range resp.Cookies() {
		if ck.Name == DefaultCookieName {
			if !ck.Secure {
				t.Error("session cookie should be Secure")
			}
			return
		}
	}
	t.Fatal("no session cookie issued")
}

func TestAskSalaryThenBudget(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})

	status, body := c.ask("I earn $20 per hour and work 40 hours per week")
	if status != http.StatusOK {
		t.Fatalf("got status %d: %v", status, body)
	}
	if !strings.Contains(body["answer"], "Monthly After Tax (20%): $2773.33") {
		t.Errorf("got %q", body["answer"])
	}

	status, body = c.ask("how should I budget")
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	for _, want := range []string{"Savings: $693.33", "Rent: $1109.34"} {
		if !strings.Contains(body["answer"], want) {
			t.Errorf("budget answer missing %q: %q", want, body["answer"])
		}
	}
}

func TestAskWithoutCookieStartsFreshSession(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	c.ask("I earn $20 per hour and work 40 hours per week")

	// A second client has no cookie, so no stored salary.
	other := &client{t: t, srv: c.srv, http: &http.Client{}}
	_, body := other.ask("how should I budget")
	if !strings.Contains(body["answer"], "income") {
		t.Errorf("fresh session should be asked for income, got %q", body["answer"])
	}
}

func TestAskIssuesSignedCookie(t *testing.T) {
	c := newTestServer(t, &fakeFallback{answer: "hi"})
	resp := c.postJSON("/ask", `{"question":"hello"}`)
	resp.Body.Close()

	var found *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == DefaultCookieName {
			found = ck
		}
	}
	if found == nil {
		t.Fatal("no session cookie issued")
	}
	if !found.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}
	if _, ok := NewCookies("", "test-secret").Decode(found.Value); !ok {
		t.Errorf("cookie %q does not verify", found.Value)
	}
}

func TestTamperedCookieIsReplaced(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	c.ask("I earn $20 per hour and work 40 hours per week")

	forged := NewCookies("", "other-secret").Encode("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	req, _ := http.NewRequest(http.MethodGet, c.srv.URL+"/api/session", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: forged})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if strings.TrimSpace(string(raw)) != "null" {
		t.Errorf("forged cookie should see no profile, got %s", raw)
	}
	if len(resp.Cookies()) == 0 {
		t.Error("forged cookie should be replaced")
	}
}

func TestGetSession(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	c.ask("I earn $20 per hour and work 40 hours per week")

	var p calc.SalaryProfile
	decodeJSON(t, c.getJSON("/api/session"), &p)
	if p.Monthly != 3466.67 || p.HoursPerWeek != 40 {
		t.Errorf("got %+v", p)
	}
}

func TestAskBadRequests(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	for name, body := range map[string]string{
		"empty":     `{"question":""}`,
		"blank":     `{"question":"   "}`,
		"missing":   `{}`,
		"malformed": `{"question":`,
		"wrongtype": `{"question":42}`,
	} {
		resp := c.postJSON("/ask", body)
		var out map[string]string
		decodeJSON(t, resp, &out)
		if resp.StatusCode != http.StatusBadRequest || out["error"] != msgNoQuestion {
			t.Errorf("%s: got %d %v", name, resp.StatusCode, out)
		}
	}
}

func TestAskFallbackFailure(t *testing.T) {
	c := newTestServer(t, &fakeFallback{err: errors.New("provider down")})
	status, body := c.ask("should I buy index funds?")
	if status != http.StatusInternalServerError || body["error"] != msgFailure {
		t.Errorf("got %d %v", status, body)
	}
}

func TestAskFallbackAnswer(t *testing.T) {
	c := newTestServer(t, &fakeFallback{answer: "Index funds are low cost."})
	status, body := c.ask("should I buy index funds?")
	if status != http.StatusOK || body["answer"] != "Index funds are low cost." {
		t.Errorf("got %d %v", status, body)
	}
}

func TestPanicReturnsApology(t *testing.T) {
	h := NewHandler(panicAsker{}, session.NewMemoryStore(0), NewCookies("", "s"), zap.NewNop())
	c := newClient(t, h)
	status, body := c.ask("anything")
	if status != http.StatusInternalServerError || body["error"] != msgApology {
		t.Errorf("got %d %v", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	c.ask("I earn $20 per hour and work 40 hours per week")

	resp := c.getJSON("/metrics")
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(raw), "smartmoney_http_requests_total") {
		t.Error("metrics output missing request counter")
	}
}

func TestCookiesDecode(t *testing.T) {
	ck := NewCookies("", "k")
	id := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	if got, ok := ck.Decode(ck.Encode(id)); !ok || got != id {
		t.Fatalf("round trip failed: %q %v", got, ok)
	}
	for _, bad := range []string{"", id, "not-a-uuid." + ck.sign("not-a-uuid"), id + ".AAAA"} {
		if _, ok := ck.Decode(bad); ok {
			t.Errorf("%q should not verify", bad)
		}
	}
}

type staticGateways []gateway.AdapterStatus

func (s staticGateways) StatusAll() []gateway.AdapterStatus { return s }

func TestGatewayStatus(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	var empty []gateway.AdapterStatus
	decodeJSON(t, c.getJSON("/api/gateways"), &empty)
	if len(empty) != 0 {
		t.Errorf("got %v, want none", empty)
	}

	store := session.NewMemoryStore(0)
	h := NewHandler(router.New(store, &fakeFallback{}, router.Config{}, zap.NewNop()), store, NewCookies("", "s"), zap.NewNop())
	h.SetGateway(staticGateways{{Platform: "slack", Connected: true}})
	c = newClient(t, h)
	var got []gateway.AdapterStatus
	decodeJSON(t, c.getJSON("/api/gateways"), &got)
	if len(got) != 1 || got[0].Platform != "slack" || !got[0].Connected {
		t.Errorf("got %+v", got)
	}
}

type staticStats map[string]int

func (s staticStats) CountByIntent(context.Context) (map[string]int, error) { return s, nil }

func TestIntentStats(t *testing.T) {
	c := newTestServer(t, &fakeFallback{})
	resp := c.getJSON("/api/stats")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("got %d without archive, want 404", resp.StatusCode)
	}

	store := session.NewMemoryStore(0)
	h := NewHandler(router.New(store, &fakeFallback{}, router.Config{}, zap.NewNop()), store, NewCookies("", "s"), zap.NewNop())
	h.SetStats(staticStats{"budget": 3})
	c = newClient(t, h)
	var got map[string]int
	decodeJSON(t, c.getJSON("/api/stats"), &got)
	if got["budget"] != 3 {
		t.Errorf("got %v", got)
	}
}
