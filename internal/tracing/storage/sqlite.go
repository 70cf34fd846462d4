// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package storage keeps a local copy of exported spans so recent
// generations can be listed without querying Phoenix.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/postgen/pkg/observability"
)

// SQLiteStore provides SQLite-backed span storage.
type SQLiteStore struct {
	db *sql.DB
}

// Config contains SQLite storage configuration.
type Config struct {
	// Path is the filesystem path to the SQLite database file.
	// Special value ":memory:" creates an in-memory database.
	Path string

	// MaxOpenConns sets the maximum number of open connections.
	MaxOpenConns int
}

// Generation is one generated post as recorded by its CHAIN span.
type Generation struct {
	SpanID      string
	TraceID     string
	Description string
	Post        string
	Model       string
	Status      observability.StatusCode
	Error       string
	StartTime   time.Time
	EndTime     time.Time
}

// Failed reports whether the generation ended with an error status.
func (g Generation) Failed() bool {
	return g.Status == observability.StatusCodeError
}

// New creates a new SQLite storage backend.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	connStr := cfg.Path
	maxConns := cfg.MaxOpenConns
	if cfg.Path == ":memory:" {
		// Every connection to :memory: is a separate database.
		maxConns = 1
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
		if maxConns == 0 {
			maxConns = 4
		}
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate creates the database schema.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spans (
			trace_id TEXT NOT NULL,
			span_id TEXT NOT NULL,
			parent_id TEXT,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			oi_kind TEXT,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			status_code INTEGER NOT NULL,
			status_message TEXT,
			attributes TEXT,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (trace_id, span_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_trace_id ON spans(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_spans_oi_kind_start ON spans(oi_kind, start_time)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// StoreSpan stores a span in the database.
func (s *SQLiteStore) StoreSpan(ctx context.Context, span *observability.Span) error {
	if span == nil {
		return fmt.Errorf("span is nil")
	}
	if span.TraceID == "" {
		return fmt.Errorf("span trace_id is required")
	}
	if span.SpanID == "" {
		return fmt.Errorf("span span_id is required")
	}

	attributesJSON, err := json.Marshal(span.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	startTime := span.StartTime.UnixNano()
	var endTime *int64
	if !span.EndTime.IsZero() {
		et := span.EndTime.UnixNano()
		endTime = &et
	}

	var parentID *string
	if span.ParentID != "" {
		parentID = &span.ParentID
	}

	var oiKind *string
	if k := span.StringAttr(observability.AttrSpanKind); k != "" {
		oiKind = &k
	}

	query := `
		INSERT INTO spans (trace_id, span_id, parent_id, name, kind, oi_kind, start_time, end_time,
			status_code, status_message, attributes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trace_id, span_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			kind = excluded.kind,
			oi_kind = excluded.oi_kind,
			end_time = excluded.end_time,
			status_code = excluded.status_code,
			status_message = excluded.status_message,
			attributes = excluded.attributes
	`

	_, err = s.db.ExecContext(ctx, query,
		span.TraceID, span.SpanID, parentID, span.Name, string(span.Kind), oiKind,
		startTime, endTime, int(span.Status.Code), span.Status.Message,
		string(attributesJSON), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store span: %w", err)
	}

	return nil
}

// GetSpan retrieves a span by its span ID.
func (s *SQLiteStore) GetSpan(ctx context.Context, spanID string) (*observability.Span, error) {
	query := `
		SELECT trace_id, span_id, parent_id, name, kind, start_time, end_time,
			status_code, status_message, attributes
		FROM spans WHERE span_id = ?
	`

	span, err := scanSpan(s.db.QueryRowContext(ctx, query, spanID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("span not found: %s", spanID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get span: %w", err)
	}
	return span, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpan(row rowScanner) (*observability.Span, error) {
	var span observability.Span
	var parentID, statusMessage, attributesJSON sql.NullString
	var endTime sql.NullInt64
	var startTime int64
	var kind string
	var statusCode int

	if err := row.Scan(
		&span.TraceID, &span.SpanID, &parentID, &span.Name, &kind,
		&startTime, &endTime, &statusCode, &statusMessage, &attributesJSON,
	); err != nil {
		return nil, err
	}

	span.ParentID = parentID.String
	span.Kind = observability.SpanKind(kind)
	span.Status = observability.SpanStatus{
		Code:    observability.StatusCode(statusCode),
		Message: statusMessage.String,
	}
	span.StartTime = time.Unix(0, startTime)
	if endTime.Valid {
		span.EndTime = time.Unix(0, endTime.Int64)
	}
	if attributesJSON.String != "" {
		if err := json.Unmarshal([]byte(attributesJSON.String), &span.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}

	return &span, nil
}

// ListGenerations returns the most recent generation spans, newest first.
// A limit of zero or less means 20.
func (s *SQLiteStore) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT trace_id, span_id, parent_id, name, kind, start_time, end_time,
			status_code, status_message, attributes
		FROM spans
		WHERE oi_kind = ?
		ORDER BY start_time DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, observability.KindChain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	var spans []*observability.Span
	for rows.Next() {
		span, err := scanSpan(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan span: %w", err)
		}
		spans = append(spans, span)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate spans: %w", err)
	}
	rows.Close()

	generations := make([]Generation, 0, len(spans))
	for _, span := range spans {
		model, err := s.modelForTrace(ctx, span.TraceID)
		if err != nil {
			return nil, err
		}
		generations = append(generations, Generation{
			SpanID:      span.SpanID,
			TraceID:     span.TraceID,
			Description: span.StringAttr(observability.AttrInputValue),
			Post:        span.StringAttr(observability.AttrOutputValue),
			Model:       model,
			Status:      span.Status.Code,
			Error:       span.Status.Message,
			StartTime:   span.StartTime,
			EndTime:     span.EndTime,
		})
	}

	return generations, nil
}

// modelForTrace returns the model recorded on the trace's LLM span, if any.
func (s *SQLiteStore) modelForTrace(ctx context.Context, traceID string) (string, error) {
	var attributesJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT attributes FROM spans WHERE trace_id = ? AND oi_kind = ? ORDER BY start_time LIMIT 1`,
		traceID, observability.KindLLM,
	).Scan(&attributesJSON)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get model for trace %s: %w", traceID, err)
	}

	var attrs map[string]any
	if err := json.Unmarshal([]byte(attributesJSON.String), &attrs); err != nil {
		return "", fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	model, _ := attrs[observability.AttrLLMModelName].(string)
	return model, nil
}

// DeleteSpansOlderThan removes spans that started before the given time.
func (s *SQLiteStore) DeleteSpansOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM spans WHERE start_time < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old spans: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
