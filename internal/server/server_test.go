package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeprotest/factcheck/internal/factcheck"
	"github.com/safeprotest/factcheck/internal/model"
	"github.com/safeprotest/factcheck/internal/store/memory"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, mutate ...func(*model.ServerConfig)) *Server {
	t.Helper()
	cfg := model.DefaultConfig().Server
	cfg.JWTSecret = testSecret
	cfg.IdentityHeader = model.DefaultIdentityHeader
	cfg.VotesPerSecond = 100
	cfg.VoteBurst = 100
	for _, m := range mutate {
		m(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(factcheck.New(memory.New()), cfg, logger)
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func submit(t *testing.T, s *Server, claim string, sources ...string) string {
	t.Helper()
	body, _ := json.Marshal(claimRequest{Claim: claim, Sources: sources})
	rec := do(t, s, http.MethodPost, "/api/fact-check", string(body), "X-User-ID", "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody[map[string]any](t, rec)
	return resp["id"].(string)
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/fact-check/evaluate", `{"claim":"Road closed on Main St","sources":["reuters.com"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	eval := decodeBody[model.Evaluation](t, rec)
	assert.Equal(t, model.StatusUnverified, eval.Result.Status)
	assert.InDelta(t, 0.6, eval.Result.Score, 1e-9)
	assert.Equal(t, []string{"reuters.com"}, eval.Result.Sources)
}

func TestEvaluate_Errors(t *testing.T) {
	s := newTestServer(t, func(c *model.ServerConfig) { c.MaxRequestBytes = 64 })

	rec := do(t, s, http.MethodPost, "/api/fact-check/evaluate", `{"claim":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "claim text required", decodeBody[map[string]string](t, rec)["error"])

	rec = do(t, s, http.MethodPost, "/api/fact-check/evaluate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/fact-check/evaluate", `{"claim":"`+strings.Repeat("a", 200)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSubmit_RequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/fact-check", `{"claim":"Road closed"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decodeBody[map[string]string](t, rec)["error"])
}

func TestSubmitAndGet(t *testing.T) {
	s := newTestServer(t)

	body := `{"claim":"Road closed on Main St","sources":["reuters.com"]}`
	rec := do(t, s, http.MethodPost, "/api/fact-check", body, "X-User-ID", "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[map[string]any](t, rec)
	id, _ := resp["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "unverified", resp["status"])
	assert.Contains(t, resp, "score")
	assert.Contains(t, resp, "reasoning")

	rec = do(t, s, http.MethodGet, "/api/fact-check/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[model.Record](t, rec)
	assert.Equal(t, "alice", got.SubmittedBy)
	assert.Equal(t, "Road closed on Main St", got.Claim)

	rec = do(t, s, http.MethodGet, "/api/fact-check/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList(t *testing.T) {
	s := newTestServer(t)
	submit(t, s, "Road closed on Main St")
	submit(t, s, "Bridge open", "npr.org")
	submit(t, s, "Water station moved")

	rec := do(t, s, http.MethodGet, "/api/fact-check?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[map[string][]model.Record](t, rec)["factChecks"]
	assert.Len(t, all, 2)

	rec = do(t, s, http.MethodGet, "/api/fact-check?q=NPR", "")
	found := decodeBody[map[string][]model.Record](t, rec)["factChecks"]
	require.Len(t, found, 1)
	assert.Equal(t, "Bridge open", found[0].Claim)

	rec = do(t, s, http.MethodGet, "/api/fact-check?q=nothing-matches", "")
	assert.JSONEq(t, `{"factChecks":[]}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/fact-check?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVote(t *testing.T) {
	s := newTestServer(t)
	id := submit(t, s, "Road closed on Main St", "reuters.com")

	rec := do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"false","evidence":"I am there, it is open"}`, "X-User-ID", "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Vote recorded successfully"}`, rec.Body.String())

	// The vote triggers a recheck of the stored verdict
	rec = do(t, s, http.MethodGet, "/api/fact-check/"+id, "")
	got := decodeBody[model.Record](t, rec)
	assert.Equal(t, model.StatusDisputed, got.Result.Status)
	require.Len(t, got.Votes, 1)
	assert.Equal(t, "bob", got.Votes[0].VoterID)

	rec = do(t, s, http.MethodGet, "/api/fact-check/"+id+"/votes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	votes := decodeBody[votesResponse](t, rec)
	assert.Equal(t, model.Tally{False: 1}, votes.Tally)
}

func TestVote_Errors(t *testing.T) {
	s := newTestServer(t)
	id := submit(t, s, "Road closed")

	rec := do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"true"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"maybe"}`, "X-User-ID", "bob")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/fact-check/missing/votes", `{"vote":"true"}`, "X-User-ID", "bob")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/fact-check/missing/votes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVote_RateLimited(t *testing.T) {
	s := newTestServer(t, func(c *model.ServerConfig) {
		c.VotesPerSecond = 0.001
		c.VoteBurst = 1
	})
	id := submit(t, s, "Road closed")

	rec := do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"true"}`, "X-User-ID", "bob")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"false"}`, "X-User-ID", "bob")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Other voters are unaffected
	rec = do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"false"}`, "X-User-ID", "carol")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVote_BearerToken(t *testing.T) {
	s := newTestServer(t)
	id := submit(t, s, "Road closed")

	token, err := s.Authenticator().Issue("dave", time.Hour)
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"disputed"}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/fact-check/"+id+"/votes", "")
	votes := decodeBody[votesResponse](t, rec)
	require.Len(t, votes.Votes, 1)
	assert.Equal(t, "dave", votes.Votes[0].VoterID)

	// A bad token is rejected even when the header is present
	rec = do(t, s, http.MethodPost, "/api/fact-check/"+id+"/votes", `{"vote":"true"}`, "Authorization", "Bearer garbage", "X-User-ID", "eve")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecheck(t *testing.T) {
	s := newTestServer(t)
	id := submit(t, s, "Road closed", "reuters.com")

	rec := do(t, s, http.MethodPost, "/api/fact-check/"+id+"/recheck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decodeBody[model.Record](t, rec).ID)

	rec = do(t, s, http.MethodPost, "/api/fact-check/missing/recheck", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	do(t, s, http.MethodPost, "/api/fact-check/evaluate", `{"claim":"Road closed"}`)

	rec = do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `factcheck_evaluations_total{status="false"} 1`)
	assert.Contains(t, body, `route="/api/fact-check/evaluate"`)

	disabled := newTestServer(t, func(c *model.ServerConfig) { c.EnableMetrics = false })
	rec = do(t, disabled, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", ln.Addr()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_InFlightRequestSurvivesShutdown(t *testing.T) {
	s := newTestServer(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	ctxErr := make(chan error, 1)
	s.router.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		ctxErr <- r.Context().Err()
		w.WriteHeader(http.StatusNoContent)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	respCh := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/slow", ln.Addr()))
		if err != nil {
			respCh <- nil
			return
		}
		_ = resp.Body.Close()
		respCh <- resp
	}()

	<-entered
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)

	assert.NoError(t, <-ctxErr, "request context cancelled by shutdown")
	resp := <-respCh
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
