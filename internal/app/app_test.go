package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anthemengine/internal/config"
	"anthemengine/internal/domain"
	"anthemengine/internal/records"
	"anthemengine/internal/secret"
	"anthemengine/internal/service"
)

const fixture = `{
  "Opportunity": [
    {"Id": "006A", "Name": "Big Deal", "Amount": 125000, "AccountId": "001A"}
  ],
  "OpportunityLineItem": [
    {"OpportunityId": "006A", "Quantity": 3},
    {"OpportunityId": "006A", "Quantity": 7}
  ],
  "Account": [
    {"Id": "001A", "Name": "Acme"}
  ]
}`

func smallObjects() domain.Objects {
	return domain.Objects{
		Primary:   domain.ObjectSchema{Object: "Opportunity", KeyField: "Id", Fields: []string{"Name", "Amount"}},
		Secondary: domain.ObjectSchema{Object: "OpportunityLineItem", KeyField: "OpportunityId", Fields: []string{"Quantity"}},
		Related:   domain.ObjectSchema{Object: "Account", KeyField: "Id", LinkField: "AccountId", Fields: []string{"Name"}},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Generator.SampleBudget = 200
	cfg.Objects = smallObjects()
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	logger, _ := test.NewNullLogger()
	a, err := New(cfg, logger, func(string) string { return "" }, Options{
		Secrets: secret.NewMapStore(),
		Emitter: &service.MockEmitter{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))
	return path
}

func TestGenerateFromJSONFixture(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.SourceConfig{Type: "json_file", Config: records.SourceConfig{"filePath": writeFixture(t)}}
	a := newTestApp(t, cfg)

	run, err := a.Anthems.Generate(context.Background(), "006A")
	require.NoError(t, err)
	assert.Equal(t, "006A", run.OpportunityID)
	assert.Equal(t, "json_file", run.SourceType)
	require.Len(t, run.Channels, 3)
	for _, ch := range run.Channels {
		assert.Len(t, ch, 256)
	}
	assert.GreaterOrEqual(t, run.Max, 0.0)
	assert.LessOrEqual(t, run.Min, 0.0)

	stored, err := a.Anthems.Latest(context.Background(), "006A")
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
	assert.Equal(t, run.Channels, stored.Channels)
}

func TestGenerateUnknownOpportunity(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.SourceConfig{Type: "json_file", Config: records.SourceConfig{"filePath": writeFixture(t)}}
	a := newTestApp(t, cfg)

	_, err := a.Anthems.Generate(context.Background(), "006Z")
	require.ErrorIs(t, err, records.ErrNotFound)
}

func TestHTTPSurface(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.SourceConfig{Type: "json_file", Config: records.SourceConfig{"filePath": writeFixture(t)}}
	a := newTestApp(t, cfg)
	h := a.HTTP().Handler()

	req := httptest.NewRequest(http.MethodPost, "/generateanthem", strings.NewReader(`{"opportunityId":"006A"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		AnthemData    [][]float64 `json:"anthemData"`
		OpportunityID string      `json:"opportunityId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "006A", body.OpportunityID)
	assert.Len(t, body.AnthemData, 3)

	runID := rec.Header().Get("X-Anthem-Run")
	require.NotEmpty(t, runID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anthems/"+runID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/opportunities/006A/anthem", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNoSourceConfigured(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	_, err := a.Anthems.Generate(context.Background(), "006A")
	require.ErrorIs(t, err, records.ErrNoSource)
}

func TestUnknownSourceType(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = config.SourceConfig{Type: "carrier_pigeon"}
	logger, _ := test.NewNullLogger()

	_, err := New(cfg, logger, func(string) string { return "" }, Options{Secrets: secret.NewMapStore()})
	require.Error(t, err)
}

func TestPlaceholderMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.Mode = domain.ModePlaceholder
	cfg.Generator.PlaceholderLength = 100
	a := newTestApp(t, cfg)

	run, err := a.Anthems.Generate(context.Background(), "006A")
	require.NoError(t, err)
	require.Len(t, run.Channels, 3)
	for _, ch := range run.Channels {
		assert.Len(t, ch, 128)
		for _, v := range ch {
			assert.True(t, v >= -1 && v < 1)
		}
	}
}

func TestGenerateFromStoredSQLiteConnection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crm.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE Opportunity (Id TEXT, Name TEXT, Amount REAL, AccountId TEXT)`,
		`CREATE TABLE OpportunityLineItem (Id TEXT, OpportunityId TEXT, Quantity REAL)`,
		`CREATE TABLE Account (Id TEXT, Name TEXT)`,
		`INSERT INTO Opportunity VALUES ('006A', 'Big Deal', 125000, '001A')`,
		`INSERT INTO OpportunityLineItem VALUES ('00kA', '006A', 3)`,
		`INSERT INTO Account VALUES ('001A', 'Acme')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	require.NoError(t, db.Close())

	cfg := testConfig(t)
	a := newTestApp(t, cfg)
	conn, err := a.Sources.Create(context.Background(), service.SourceInput{Name: "crm", Driver: "sqlite", Host: dbPath})
	require.NoError(t, err)

	// The bound source resolves the connection through the app's provider.
	bound, err := records.Bind("database", records.SourceConfig{"connectionId": conn.ID})
	require.NoError(t, err)
	bundle, err := records.NewRetriever(bound, cfg.Objects, a.Logger).Fetch(context.Background(), "006A")
	require.NoError(t, err)
	assert.Equal(t, "Big Deal", bundle.Primary["Name"])
	assert.Equal(t, 1, bundle.SecondaryCount)
	assert.Equal(t, "Acme", bundle.Related["Name"])
}

func TestMCPServerRegistersTools(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	s := a.MCP().MCP()
	for _, name := range []string{"generate_anthem", "get_anthem", "list_anthems", "list_sources", "test_source", "describe_source"} {
		assert.NotNil(t, s.GetTool(name), name)
	}
}

func TestStartSchedules(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		a := newTestApp(t, testConfig(t))
		started, err := a.StartSchedules(context.Background())
		require.NoError(t, err)
		assert.False(t, started)
	})

	t.Run("cron schedule", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Generator.Mode = domain.ModePlaceholder
		cfg.Schedules = []service.Schedule{{OpportunityID: "006A", Cron: "@every 1h"}}
		a := newTestApp(t, cfg)

		started, err := a.StartSchedules(context.Background())
		require.NoError(t, err)
		assert.True(t, started)
	})

	t.Run("bad cron", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Schedules = []service.Schedule{{OpportunityID: "006A", Cron: "not a cron"}}
		a := newTestApp(t, cfg)

		_, err := a.StartSchedules(context.Background())
		require.Error(t, err)
	})
}
