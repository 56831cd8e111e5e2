package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xobs/runny/internal/api"
)

type stubController struct {
	report    *api.SessionReport
	statusErr error

	terminated     bool
	terminateDelay *time.Duration
	terminateErr   error
}

func (c *stubController) Status(ctx context.Context) (*api.SessionReport, error) {
	if c.statusErr != nil {
		return nil, c.statusErr
	}
	return c.report, nil
}

func (c *stubController) Terminate(ctx context.Context, delay *time.Duration) (*api.TerminateResult, error) {
	c.terminated = true
	c.terminateDelay = delay
	if c.terminateErr != nil {
		return nil, c.terminateErr
	}
	return &api.TerminateResult{Job: c.report.Job, ExitCode: -1, CompletedAt: time.Now()}, nil
}

func newTestServer(t *testing.T, ctrl api.Controller) *Server {
	t.Helper()
	srv, err := NewServer(Config{Controller: ctrl})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSessionStatus(t *testing.T) {
	pid := 4242
	ctrl := &stubController{report: &api.SessionReport{
		Job:         "worker",
		Pid:         pid,
		Running:     true,
		StartedAt:   time.Now().Add(-time.Minute),
		GeneratedAt: time.Now(),
	}}
	srv := newTestServer(t, ctrl)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200: %s", rec.Code, rec.Body.String())
	}
	var report api.SessionReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Job != "worker" || report.Pid != pid || !report.Running {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSessionStatusWrongMethod(t *testing.T) {
	srv := newTestServer(t, &stubController{report: &api.SessionReport{}})

	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/session", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, expected 405", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodGet {
		t.Fatalf("Allow header %q, expected GET", got)
	}
}

func TestSessionStatusNoSession(t *testing.T) {
	srv := newTestServer(t, &stubController{statusErr: api.ErrNoSession})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, expected 404", rec.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "no_session" {
		t.Fatalf("error code %q, expected no_session", body.Code)
	}
}

func TestTerminateWithGraceOverride(t *testing.T) {
	ctrl := &stubController{report: &api.SessionReport{Job: "worker"}}
	srv := newTestServer(t, ctrl)

	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/terminate?grace=2s", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200: %s", rec.Code, rec.Body.String())
	}
	if !ctrl.terminated {
		t.Fatalf("controller was not asked to terminate")
	}
	if ctrl.terminateDelay == nil || *ctrl.terminateDelay != 2*time.Second {
		t.Fatalf("unexpected grace override %v", ctrl.terminateDelay)
	}

	var payload struct {
		Terminate api.TerminateResult `json:"terminate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Terminate.Job != "worker" {
		t.Fatalf("unexpected terminate payload %+v", payload.Terminate)
	}
}

func TestTerminateWithoutGraceUsesDefault(t *testing.T) {
	ctrl := &stubController{report: &api.SessionReport{Job: "worker"}}
	srv := newTestServer(t, ctrl)

	rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/terminate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200: %s", rec.Code, rec.Body.String())
	}
	if ctrl.terminateDelay != nil {
		t.Fatalf("grace override %v, expected nil passthrough", ctrl.terminateDelay)
	}
}

func TestTerminateRejectsInvalidGrace(t *testing.T) {
	ctrl := &stubController{report: &api.SessionReport{Job: "worker"}}
	srv := newTestServer(t, ctrl)

	for _, raw := range []string{"nonsense", "-1s"} {
		rec := serve(srv, httptest.NewRequest(http.MethodPost, "/api/v1/terminate?grace="+raw, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("grace %q: status %d, expected 400", raw, rec.Code)
		}
	}
	if ctrl.terminated {
		t.Fatalf("controller terminated despite invalid grace")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubController{report: &api.SessionReport{}})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200", rec.Code)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	srv := newTestServer(t, &stubController{report: &api.SessionReport{}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.listener = ln
	srv.srv.Addr = ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/session")
	if err != nil {
		t.Fatalf("request running server: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after cancel")
	}
}

func TestNormalizeAddr(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "127.0.0.1:7663"},
		{"0.0.0.0:9000", "127.0.0.1:9000"},
		{":9000", "127.0.0.1:9000"},
		{"10.0.0.1:9000", "10.0.0.1:9000"},
	}
	for _, tc := range cases {
		if got := normalizeAddr(tc.in); got != tc.want {
			t.Fatalf("normalizeAddr(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}
