package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"anthemengine/internal/dbclient"
	"anthemengine/internal/domain"
	"anthemengine/internal/secret"
	"anthemengine/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Source Service: stored connections to upstream record stores
// ─────────────────────────────────────────────────────────────

// ErrInvalidSource reports a connection definition that cannot be saved.
var ErrInvalidSource = errors.New("service: invalid source connection")

// SourceInput is the service-layer DTO for creating/updating connections.
type SourceInput struct {
	Name      string `json:"name"`
	Driver    string `json:"driver"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	SSLMode   string `json:"sslMode"`
	ExtraJSON string `json:"extraJson"`
}

// Validate checks the fields every driver needs.
func (in SourceInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	if !lo.Contains(domain.Drivers, domain.SourceDriver(in.Driver)) {
		return fmt.Errorf("%w: unsupported driver %q", ErrInvalidSource, in.Driver)
	}
	if strings.TrimSpace(in.Host) == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidSource)
	}
	if in.Port < 0 || in.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidSource, in.Port)
	}
	return nil
}

func (in SourceInput) apply(c *domain.SourceConnection) {
	c.Name = strings.TrimSpace(in.Name)
	c.Driver = domain.SourceDriver(in.Driver)
	c.Host = in.Host
	c.Port = in.Port
	c.Database = in.Database
	c.Username = in.Username
	c.SSLMode = in.SSLMode
	if in.ExtraJSON != "" {
		c.ExtraJSON = in.ExtraJSON
	}
}

// ConnectorFactory opens a connector; dbclient.NewConnector by default.
type ConnectorFactory func(conn *domain.SourceConnection, password string, logger logrus.FieldLogger) (dbclient.Connector, error)

// SourceService manages stored source connections and keeps a pool of
// live connectors. It implements the database record source's provider.
type SourceService struct {
	store   *storage.SourceStore
	secrets secret.SecretStore
	emitter EventEmitter
	logger  logrus.FieldLogger
	open    ConnectorFactory

	mu         sync.Mutex
	connectors map[string]*connEntry
}

type connEntry struct {
	connector dbclient.Connector
	createdAt time.Time
}

// NewSourceService creates a SourceService.
func NewSourceService(
	store *storage.SourceStore,
	secrets secret.SecretStore,
	emitter EventEmitter,
	logger logrus.FieldLogger,
) *SourceService {
	return &SourceService{
		store:      store,
		secrets:    secrets,
		emitter:    emitter,
		logger:     logger.WithField("component", "sources"),
		open:       dbclient.NewConnector,
		connectors: make(map[string]*connEntry),
	}
}

// WithConnectorFactory replaces how connectors are opened.
func (s *SourceService) WithConnectorFactory(f ConnectorFactory) *SourceService {
	s.open = f
	return s
}

// ── Connection CRUD ────────────────────────────────────────

func (s *SourceService) List(ctx context.Context) ([]domain.SourceConnection, error) {
	return s.store.List(ctx)
}

// Get resolves a connection by id, then by name.
func (s *SourceService) Get(ctx context.Context, idOrName string) (*domain.SourceConnection, error) {
	c, err := s.store.Get(ctx, idOrName)
	if errors.Is(err, storage.ErrNotFound) {
		return s.store.GetByName(ctx, idOrName)
	}
	return c, err
}

func (s *SourceService) Create(ctx context.Context, input SourceInput) (*domain.SourceConnection, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	conn := &domain.SourceConnection{}
	input.apply(conn)
	if err := s.store.Create(ctx, conn); err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	s.storePassword(conn, input.Password)
	s.emitter.Emit(ctx, EventSourcesChanged, conn.ID)
	return conn, nil
}

func (s *SourceService) Update(ctx context.Context, id string, input SourceInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	conn, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	input.apply(conn)
	if err := s.store.Update(ctx, conn); err != nil {
		return err
	}
	s.storePassword(conn, input.Password)
	// Invalidate the pooled connector so the next query reconnects with the new config.
	s.evict(id)
	s.emitter.Emit(ctx, EventSourcesChanged, id)
	return nil
}

func (s *SourceService) Delete(ctx context.Context, id string) error {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.evict(conn.ID)
	if err := s.secrets.Delete(conn.SecretKey()); err != nil {
		s.logger.WithField("source", conn.Name).Warnf("failed to delete password: %v", err)
	}
	if err := s.store.Delete(ctx, conn.ID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventSourcesChanged, conn.ID)
	return nil
}

func (s *SourceService) storePassword(conn *domain.SourceConnection, password string) {
	if password == "" {
		return
	}
	if err := s.secrets.Set(conn.SecretKey(), []byte(password)); err != nil {
		if errors.Is(err, secret.ErrReadOnly) {
			s.logger.WithField("source", conn.Name).Warnf("password not stored; export %s instead", secret.EnvName(conn.SecretKey()))
			return
		}
		s.logger.WithField("source", conn.Name).Warnf("failed to store password: %v", err)
	}
}

// ── Test + Introspect ──────────────────────────────────────

func (s *SourceService) Test(ctx context.Context, idOrName string) error {
	c, err := s.Connector(ctx, idOrName)
	if err != nil {
		return err
	}
	return c.TestConnection(ctx)
}

func (s *SourceService) Introspect(ctx context.Context, idOrName string) (*dbclient.SchemaInfo, error) {
	c, err := s.Connector(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	return c.Introspect(ctx)
}

// ── Connector Pool ─────────────────────────────────────────

// Connector returns a pooled connector for a stored connection id or name.
func (s *SourceService) Connector(ctx context.Context, idOrName string) (dbclient.Connector, error) {
	s.mu.Lock()
	if e, ok := s.connectors[idOrName]; ok {
		s.mu.Unlock()
		return e.connector, nil
	}
	s.mu.Unlock()

	conn, err := s.Get(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", idOrName, err)
	}
	if c, ok := s.pooled(conn.ID, idOrName); ok {
		return c, nil
	}

	var password string
	if pw, err := s.secrets.Get(conn.SecretKey()); err != nil {
		s.logger.WithField("source", conn.Name).Warnf("failed to read password: %v", err)
	} else {
		password = string(pw)
	}

	connector, err := s.open(conn, password, s.logger)
	if err != nil {
		return nil, fmt.Errorf("open source connection: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.connectors[conn.ID]
	if ok {
		// Lost a race with another caller; keep the first connector.
		_ = connector.Close()
	} else {
		e = &connEntry{connector: connector, createdAt: time.Now()}
		s.connectors[conn.ID] = e
	}
	s.connectors[idOrName] = e
	return e.connector, nil
}

// pooled returns the connector already open for id and records alias for it.
func (s *SourceService) pooled(id, alias string) (dbclient.Connector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.connectors[id]
	if !ok {
		return nil, false
	}
	s.connectors[alias] = e
	return e.connector, true
}

func (s *SourceService) evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.connectors[id]
	if !ok {
		return
	}
	_ = e.connector.Close()
	for k, v := range s.connectors {
		if v == e {
			delete(s.connectors, k)
		}
	}
}

// Close tears down all pooled connectors.
func (s *SourceService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := map[*connEntry]bool{}
	for id, entry := range s.connectors {
		if !closed[entry] {
			_ = entry.connector.Close()
			closed[entry] = true
		}
		delete(s.connectors, id)
	}
}
