package server_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sceneindex/submitd/hosting"
	"github.com/sceneindex/submitd/journal"
	"github.com/sceneindex/submitd/scenelist"
	"github.com/sceneindex/submitd/server"
	"github.com/sceneindex/submitd/submitter"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// submitSpy stands in for the orchestrator and records
// whether it was reached.
type submitSpy struct {
	calls  int
	result *submitter.Result
	err    error
}

func (s *submitSpy) submit(
	_ context.Context,
	_ *scenelist.Submission,
) (*submitter.Result, error) {
	s.calls++

	return s.result, s.err
}

func testRouter(
	spy *submitSpy,
	secret string,
	jnl *journal.Journal,
) http.Handler {
	return server.NewRouter(server.Config{
		Logger:       discardLogger(),
		SharedSecret: secret,
		Rules:        scenelist.DefaultRules(),
		Submit:       spy.submit,
		Journal:      jnl,
		Version:      "test",
		StartTime:    time.Now(),
	})
}

func validBody() string {
	return `{
		"scene_list": {
			"schema_version": 2,
			"imdb_id": "tt1234567",
			"scenes": [{"start_ms": 0}]
		},
		"scene_path": "scenejsons/x.json"
	}`
}

func doSubmit(
	t *testing.T,
	handler http.Handler,
	body string,
	authorization string,
) (*httptest.ResponseRecorder, server.Response) {
	t.Helper()

	req := httptest.NewRequest(
		http.MethodPost,
		"/submit",
		strings.NewReader(body),
	)

	if authorization != "" {
		req.Header.Set(
			"Authorization", authorization,
		)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var resp server.Response

	require.NoError(t, json.Unmarshal(
		rec.Body.Bytes(), &resp,
	))

	return rec, resp
}

func TestSubmit_success(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{
		result: &submitter.Result{
			PRURL:  "https://example.com/pr/9",
			Branch: "scene-list/tt1234567-1",
		},
	}

	rec, resp := doSubmit(
		t, testRouter(spy, "", nil), validBody(), "",
	)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.OK)
	assert.Equal(
		t, "https://example.com/pr/9", resp.PRURL,
	)
	assert.Nil(t, resp.Error)
	assert.Equal(t, 1, spy.calls)
}

func TestSubmit_validationFailure(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{}

	rec, resp := doSubmit(
		t,
		testRouter(spy, "", nil),
		`{"scene_path": "scenejsons/x.json"}`,
		"",
	)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "bad_request", resp.Error.Code)

	// Validation failures never reach the pipeline.
	assert.Zero(t, spy.calls)
}

func TestSubmit_badJSON(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{}

	rec, resp := doSubmit(
		t, testRouter(spy, "", nil), `{broken`, "",
	)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_json", resp.Error.Code)
	assert.Zero(t, spy.calls)
}

func TestSubmit_payloadTooLarge(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{}

	body := `{"scene_list": {"title": "` +
		strings.Repeat("x", 900_001) + `"}}`

	rec, resp := doSubmit(
		t, testRouter(spy, "", nil), body, "",
	)

	assert.Equal(
		t,
		http.StatusRequestEntityTooLarge,
		rec.Code,
	)
	assert.Equal(
		t, "payload_too_large", resp.Error.Code,
	)
	assert.Zero(t, spy.calls)
}

func TestSubmit_sharedSecret(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		auth string
	}{
		{name: "missing header", auth: ""},
		{name: "wrong scheme", auth: "Basic s3cret"},
		{name: "wrong secret", auth: "Bearer nope"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			spy := &submitSpy{}

			// Even an invalid body must not reach the
			// validator when the secret check fails.
			rec, resp := doSubmit(
				t,
				testRouter(spy, "s3cret", nil),
				`{broken`,
				tc.auth,
			)

			assert.Equal(
				t,
				http.StatusUnauthorized,
				rec.Code,
			)
			assert.Equal(
				t, "unauthorized", resp.Error.Code,
			)
			assert.Zero(t, spy.calls)
		})
	}
}

func TestSubmit_sharedSecretAccepted(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{
		result: &submitter.Result{
			PRURL: "https://example.com/pr/10",
		},
	}

	rec, resp := doSubmit(
		t,
		testRouter(spy, "s3cret", nil),
		validBody(),
		"Bearer s3cret",
	)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.OK)
	assert.Equal(t, 1, spy.calls)
}

func TestSubmit_remoteFailure(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{
		err: &hosting.CallError{
			Op:     "creating branch",
			Status: 422,
			Body:   "reference already exists",
		},
	}

	rec, resp := doSubmit(
		t, testRouter(spy, "", nil), validBody(), "",
	)

	assert.Equal(
		t, http.StatusInternalServerError, rec.Code,
	)
	assert.False(t, resp.OK)
	assert.Equal(t, "github_error", resp.Error.Code)
	assert.Contains(
		t,
		resp.Error.Details,
		"reference already exists",
	)
}

func TestSubmit_authFailure(t *testing.T) {
	t.Parallel()

	spy := &submitSpy{
		err: &hosting.AuthError{
			Code:    hosting.CodeAuthFailed,
			Message: "token exchange failed",
			Status:  401,
		},
	}

	rec, resp := doSubmit(
		t, testRouter(spy, "", nil), validBody(), "",
	)

	assert.Equal(
		t, http.StatusInternalServerError, rec.Code,
	)
	assert.Equal(t, "auth_failed", resp.Error.Code)
}

func TestRouter_unknownPath(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(
		http.MethodGet, "/nope", nil,
	)
	rec := httptest.NewRecorder()

	testRouter(&submitSpy{}, "", nil).
		ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp server.Response

	require.NoError(t, json.Unmarshal(
		rec.Body.Bytes(), &resp,
	))
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestRouter_wrongMethod(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(
		http.MethodGet, "/submit", nil,
	)
	rec := httptest.NewRecorder()

	testRouter(&submitSpy{}, "", nil).
		ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_health(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(
		http.MethodGet, "/health", nil,
	)
	rec := httptest.NewRecorder()

	// Health stays open even with a secret set.
	testRouter(&submitSpy{}, "s3cret", nil).
		ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.NotEmpty(
		t, rec.Header().Get("X-Request-Id"),
	)
}

func TestSubmit_recordsJournal(t *testing.T) {
	t.Parallel()

	jnl, err := journal.Open(filepath.Join(
		t.TempDir(), "journal.db",
	))
	require.NoError(t, err)

	t.Cleanup(func() { _ = jnl.Close() })

	spy := &submitSpy{
		result: &submitter.Result{
			PRURL:  "https://example.com/pr/11",
			Branch: "scene-list/tt1234567-1",
		},
	}

	router := testRouter(spy, "", jnl)

	_, resp := doSubmit(t, router, validBody(), "")
	require.True(t, resp.OK)

	req := httptest.NewRequest(
		http.MethodGet, "/submissions", nil,
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Submissions []journal.Entry `json:"submissions"`
	}

	require.NoError(t, json.Unmarshal(
		rec.Body.Bytes(), &listing,
	))
	require.Len(t, listing.Submissions, 1)

	entry := listing.Submissions[0]

	assert.Equal(t, "tt1234567", entry.IMDBID)
	assert.Equal(t, "ok", entry.Status)
	assert.Equal(
		t,
		"https://example.com/pr/11",
		entry.PRURL,
	)
}

func TestSubmissions_disabled(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(
		http.MethodGet, "/submissions", nil,
	)
	rec := httptest.NewRecorder()

	testRouter(&submitSpy{}, "", nil).
		ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
