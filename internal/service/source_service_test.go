package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anthemengine/internal/dbclient"
	"anthemengine/internal/domain"
	"anthemengine/internal/secret"
	"anthemengine/internal/service"
	"anthemengine/internal/storage"
)

type fakeConnector struct {
	closed  int
	pingErr error
}

func (c *fakeConnector) TestConnection(context.Context) error { return c.pingErr }
func (c *fakeConnector) Select(context.Context, dbclient.Select) (*dbclient.QueryPage, error) {
	return &dbclient.QueryPage{}, nil
}
func (c *fakeConnector) Introspect(context.Context) (*dbclient.SchemaInfo, error) {
	return &dbclient.SchemaInfo{Tables: []dbclient.TableInfo{{Name: "Opportunity"}}}, nil
}
func (c *fakeConnector) Close() error { c.closed++; return nil }

type sourceHarness struct {
	svc       *service.SourceService
	secrets   *secret.MapStore
	emitter   *service.MockEmitter
	opened    []string
	passwords []string
	last      *fakeConnector
}

func newSourceHarness(t *testing.T) *sourceHarness {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "anthem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	h := &sourceHarness{secrets: secret.NewMapStore(), emitter: &service.MockEmitter{}}
	h.svc = service.NewSourceService(storage.NewSourceStore(db), h.secrets, h.emitter, logger).
		WithConnectorFactory(func(conn *domain.SourceConnection, password string, _ logrus.FieldLogger) (dbclient.Connector, error) {
			h.opened = append(h.opened, conn.Name)
			h.passwords = append(h.passwords, password)
			h.last = &fakeConnector{}
			return h.last, nil
		})
	t.Cleanup(h.svc.Close)
	return h
}

func TestSourceService_CreateStoresPasswordSeparately(t *testing.T) {
	h := newSourceHarness(t)
	ctx := context.Background()

	conn, err := h.svc.Create(ctx, service.SourceInput{Name: "crm", Driver: "postgres", Host: "db", Password: "pw"})
	require.NoError(t, err)

	pw, err := h.secrets.Get(conn.SecretKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("pw"), pw)
	assert.Len(t, h.emitter.Named(service.EventSourcesChanged), 1)

	byName, err := h.svc.Get(ctx, "crm")
	require.NoError(t, err)
	assert.Equal(t, conn.ID, byName.ID)
}

func TestSourceService_Validate(t *testing.T) {
	tests := []struct {
		name  string
		input service.SourceInput
	}{
		{"no name", service.SourceInput{Driver: "sqlite", Host: "a.db"}},
		{"bad driver", service.SourceInput{Name: "x", Driver: "oracle", Host: "h"}},
		{"no host", service.SourceInput{Name: "x", Driver: "mysql"}},
		{"bad port", service.SourceInput{Name: "x", Driver: "mysql", Host: "h", Port: 70000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.input.Validate(), service.ErrInvalidSource)
		})
	}
	assert.NoError(t, service.SourceInput{Name: "x", Driver: "mongodb", Host: "h"}.Validate())
}

func TestSourceService_ConnectorPool(t *testing.T) {
	h := newSourceHarness(t)
	ctx := context.Background()

	conn, err := h.svc.Create(ctx, service.SourceInput{Name: "crm", Driver: "sqlite", Host: "crm.db", Password: "pw"})
	require.NoError(t, err)

	c1, err := h.svc.Connector(ctx, conn.ID)
	require.NoError(t, err)
	c2, err := h.svc.Connector(ctx, "crm")
	require.NoError(t, err)
	assert.Same(t, c1, c2, "name and id share one pooled connector")
	assert.Equal(t, []string{"crm"}, h.opened)
	assert.Equal(t, []string{"pw"}, h.passwords)

	require.NoError(t, h.svc.Test(ctx, "crm"))
	schema, err := h.svc.Introspect(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Opportunity", schema.Tables[0].Name)

	first := h.last
	require.NoError(t, h.svc.Update(ctx, conn.ID, service.SourceInput{Name: "crm", Driver: "sqlite", Host: "crm2.db"}))
	assert.Equal(t, 1, first.closed, "update evicts the pooled connector")

	_, err = h.svc.Connector(ctx, "crm")
	require.NoError(t, err)
	assert.Len(t, h.opened, 2)
}

func TestSourceService_ConnectorReusedByName(t *testing.T) {
	h := newSourceHarness(t)
	ctx := context.Background()

	conn, err := h.svc.Create(ctx, service.SourceInput{Name: "crm", Driver: "mongodb", Host: "mongo"})
	require.NoError(t, err)

	byName, err := h.svc.Connector(ctx, "crm")
	require.NoError(t, err)
	for range 3 {
		c, err := h.svc.Connector(ctx, "crm")
		require.NoError(t, err)
		assert.Same(t, byName, c)
	}
	byID, err := h.svc.Connector(ctx, conn.ID)
	require.NoError(t, err)
	assert.Same(t, byName, byID)

	assert.Equal(t, []string{"crm"}, h.opened)
	assert.Zero(t, h.last.closed)
}

func TestSourceService_Delete(t *testing.T) {
	h := newSourceHarness(t)
	ctx := context.Background()

	conn, err := h.svc.Create(ctx, service.SourceInput{Name: "crm", Driver: "sqlite", Host: "crm.db", Password: "pw"})
	require.NoError(t, err)
	_, err = h.svc.Connector(ctx, conn.ID)
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(ctx, "crm"))
	assert.Equal(t, 1, h.last.closed)
	pw, _ := h.secrets.Get(conn.SecretKey())
	assert.Nil(t, pw)

	_, err = h.svc.Get(ctx, conn.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, h.svc.Delete(ctx, conn.ID), storage.ErrNotFound)
}

func TestSourceService_TestReportsPingFailure(t *testing.T) {
	h := newSourceHarness(t)
	ctx := context.Background()
	_, err := h.svc.Create(ctx, service.SourceInput{Name: "crm", Driver: "sqlite", Host: "crm.db"})
	require.NoError(t, err)

	_, err = h.svc.Connector(ctx, "crm")
	require.NoError(t, err)
	h.last.pingErr = errors.New("unreachable")
	assert.EqualError(t, h.svc.Test(ctx, "crm"), "unreachable")
}

func TestSourceService_ReadOnlySecrets(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "anthem.db"))
	require.NoError(t, err)
	defer db.Close()

	logger, hook := test.NewNullLogger()
	svc := service.NewSourceService(storage.NewSourceStore(db), secret.NewEnvStore(func(string) string { return "" }), &service.MockEmitter{}, logger)

	_, err = svc.Create(context.Background(), service.SourceInput{Name: "crm", Driver: "mysql", Host: "db", Password: "pw"})
	require.NoError(t, err, "a read-only secret store is not fatal")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "ANTHEM_SECRET_SOURCE_")
}
