package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anthemengine/internal/anthem"
	"anthemengine/internal/domain"
	"anthemengine/internal/records"
	"anthemengine/internal/service"
	"anthemengine/internal/storage"
)

type fakeAnthems struct {
	runs   map[string]*domain.AnthemRun
	genErr error
}

func (f *fakeAnthems) Generate(_ context.Context, id string) (*domain.AnthemRun, error) {
	if f.genErr != nil {
		return nil, f.genErr
	}
	if strings.TrimSpace(id) == "" {
		return nil, service.ErrMissingID
	}
	return &domain.AnthemRun{ID: "run-1", OpportunityID: id, Channels: [][]float64{{0.5}, {-0.25}, {0}}}, nil
}

func (f *fakeAnthems) Get(_ context.Context, id string) (*domain.AnthemRun, error) {
	if r, ok := f.runs[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("anthem run not found: %s: %w", id, storage.ErrNotFound)
}

func (f *fakeAnthems) Latest(_ context.Context, id string) (*domain.AnthemRun, error) {
	for _, r := range f.runs {
		if r.OpportunityID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no anthem for opportunity %s: %w", id, storage.ErrNotFound)
}

func (f *fakeAnthems) List(_ context.Context, limit int) ([]domain.AnthemRun, error) {
	var out []domain.AnthemRun
	for _, r := range f.runs {
		if len(out) == limit {
			break
		}
		out = append(out, *r)
	}
	return out, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func newTestServer(f Anthems) http.Handler {
	logger, _ := test.NewNullLogger()
	return New(f, logger).Handler()
}

func TestGenerateAnthem(t *testing.T) {
	h := newTestServer(&fakeAnthems{})

	rec, body := do(t, h, http.MethodPost, "/generateanthem", `{"opportunityId":"006A"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", rec.Header().Get("X-Anthem-Run"))
	assert.Equal(t, "006A", body["opportunityId"])
	assert.Equal(t, []any{[]any{0.5}, []any{-0.25}, []any{0.0}}, body["anthemData"])
	assert.Len(t, body, 2)
}

func TestGenerateAnthem_Errors(t *testing.T) {
	tests := []struct {
		name    string
		genErr  error
		body    string
		status  int
		message string
	}{
		{"missing id", nil, `{}`, http.StatusBadRequest, "opportunityId is required"},
		{"empty body", nil, ``, http.StatusBadRequest, "opportunityId is required"},
		{"malformed", nil, `{"opportunityId":`, http.StatusBadRequest, "request body must be a JSON object"},
		{"no source", records.ErrNoSource, `{"opportunityId":"006A"}`, http.StatusUnauthorized, "records: record source not initialized"},
		{"not found", &records.NotFoundError{Object: "Opportunity", Key: "006A"}, `{"opportunityId":"006A"}`, http.StatusNotFound, `no Opportunity records found for "006A"`},
		{"upstream", &records.UpstreamError{Object: "Account", Err: errors.New("timeout")}, `{"opportunityId":"006A"}`, http.StatusBadGateway, "failed to query Account: timeout"},
		{"busy", fmt.Errorf("%w: 006A", service.ErrAlreadyRunning), `{"opportunityId":"006A"}`, http.StatusConflict, "service: generation already running: 006A"},
		{"schema", &anthem.SchemaError{Kind: anthem.KindPrimary, Err: anthem.ErrEmptySchema}, `{"opportunityId":"006A"}`, http.StatusInternalServerError, ""},
		{"unexpected", errors.New("disk on fire"), `{"opportunityId":"006A"}`, http.StatusInternalServerError, "An unexpected error occurred: disk on fire"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeAnthems{genErr: tt.genErr})
			rec, body := do(t, h, http.MethodPost, "/generateanthem", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, true, body["error"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["message"])
			}
		})
	}
}

func TestHistoryRoutes(t *testing.T) {
	f := &fakeAnthems{runs: map[string]*domain.AnthemRun{
		"run-9": {ID: "run-9", OpportunityID: "006A", Mode: domain.ModePipeline, Channels: [][]float64{{1}}},
	}}
	h := newTestServer(f)

	rec, body := do(t, h, http.MethodGet, "/anthems/run-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "006A", body["opportunityId"])

	rec, body = do(t, h, http.MethodGet, "/opportunities/006A/anthem", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-9", body["id"])

	rec, body = do(t, h, http.MethodGet, "/anthems/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, true, body["error"])

	rec, _ = do(t, h, http.MethodGet, "/anthems?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []domain.AnthemRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)

	rec, _ = do(t, h, http.MethodGet, "/anthems?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	h := newTestServer(&fakeAnthems{})

	rec, body := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", body["message"])
}

func TestWithRealService(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := service.NewAnthemService(nil, nil, nil, &service.MockEmitter{}, logger,
		service.AnthemOptions{Mode: domain.ModePlaceholder, PlaceholderLength: 64})
	h := newTestServer(svc)

	rec, body := do(t, h, http.MethodPost, "/generateanthem", `{"opportunityId":"006A"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["anthemData"], 3)

	rec, _ = do(t, h, http.MethodGet, "/anthems", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
