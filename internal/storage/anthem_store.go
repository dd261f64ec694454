package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anthemengine/internal/domain"
)

// AnthemStore persists generated anthems.
type AnthemStore struct {
	db *DB
}

// NewAnthemStore creates a new AnthemStore.
func NewAnthemStore(db *DB) *AnthemStore {
	return &AnthemStore{db: db}
}

const runColumns = `id, opportunity_id, mode, source_type, channel_count, samples_per_channel, max_sample, min_sample, warnings_json, duration_ms, created_at`

// Save inserts run, assigning an id and creation time when unset.
func (s *AnthemStore) Save(ctx context.Context, run *domain.AnthemRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	warnings, err := json.Marshal(nonNil(run.Warnings))
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}
	channels, err := json.Marshal(run.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}

	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO anthem_runs (`+runColumns+`, channels_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.OpportunityID, run.Mode, run.SourceType, run.ChannelCount, run.SamplesPerChannel,
		run.Max, run.Min, string(warnings), run.DurationMs, run.CreatedAt, string(channels),
	)
	if err != nil {
		return fmt.Errorf("insert anthem run: %w", err)
	}
	return nil
}

// Get returns the run with the given id, samples included.
func (s *AnthemStore) Get(ctx context.Context, id string) (*domain.AnthemRun, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+runColumns+`, channels_json FROM anthem_runs WHERE id = ?`, id)
	run, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("anthem run not found: %s: %w", id, ErrNotFound)
	}
	return run, err
}

// Latest returns the most recent run for an opportunity, samples included.
func (s *AnthemStore) Latest(ctx context.Context, opportunityID string) (*domain.AnthemRun, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		`SELECT `+runColumns+`, channels_json FROM anthem_runs
		 WHERE opportunity_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, opportunityID)
	run, err := scanRun(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no anthem for opportunity %s: %w", opportunityID, ErrNotFound)
	}
	return run, err
}

// List returns up to limit runs, newest first, without samples.
func (s *AnthemStore) List(ctx context.Context, limit int) ([]domain.AnthemRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+runColumns+` FROM anthem_runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.AnthemRun
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, withChannels bool) (*domain.AnthemRun, error) {
	run := &domain.AnthemRun{}
	var warnings, channels string
	dest := []any{
		&run.ID, &run.OpportunityID, &run.Mode, &run.SourceType, &run.ChannelCount, &run.SamplesPerChannel,
		&run.Max, &run.Min, &warnings, &run.DurationMs, &run.CreatedAt,
	}
	if withChannels {
		dest = append(dest, &channels)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
		return nil, fmt.Errorf("decode warnings: %w", err)
	}
	if withChannels {
		if err := json.Unmarshal([]byte(channels), &run.Channels); err != nil {
			return nil, fmt.Errorf("decode channels: %w", err)
		}
	}
	return run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
