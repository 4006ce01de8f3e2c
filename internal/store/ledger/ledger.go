// Package ledger persists the append-only record of submitted applications.
//
// Postgres is the source of truth. Elasticsearch receives a best-effort
// mirror of every record for search and dashboards; mirror failures are
// logged and never affect the write outcome. Records are facts about the
// outside world and are never updated or deleted.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"applybot/internal/common/database"
	"applybot/internal/common/logger"
	"applybot/internal/models"
)

// CacheInvalidator drops any cached per-applicant counters after an insert.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, applicantID string)
}

// InvalidatorFunc adapts a function to CacheInvalidator.
type InvalidatorFunc func(ctx context.Context, applicantID string)

func (f InvalidatorFunc) Invalidate(ctx context.Context, applicantID string) {
	f(ctx, applicantID)
}

// Store reads and writes job_applications rows.
type Store struct {
	db          *sql.DB
	es          *database.ElasticsearchClient
	esIndex     string
	invalidator CacheInvalidator
	logger      logger.Logger
}

type Option func(*Store)

// WithMirror enables the Elasticsearch mirror.
func WithMirror(es *database.ElasticsearchClient, index string) Option {
	return func(s *Store) {
		s.es = es
		s.esIndex = index
	}
}

// WithCacheInvalidator wires counter-cache invalidation after inserts.
func WithCacheInvalidator(inv CacheInvalidator) Option {
	return func(s *Store) {
		s.invalidator = inv
	}
}

func New(db *sql.DB, log logger.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ledger"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert writes one submission record. The caller only reaches this after
// the submission was verified on the surface, so the row is a statement of
// fact and failure here is a reconciliation gap, not a rollback.
func (s *Store) Insert(ctx context.Context, rec *models.ApplicationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO job_applications (id, applicant_id, job_title, job_url, company_name, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.ApplicantID, rec.JobTitle, rec.JobURL, rec.CompanyName, rec.AppliedAt,
	); err != nil {
		return fmt.Errorf("failed to insert application record: %w", err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, rec.ApplicantID)
	}
	s.mirror(ctx, rec)

	s.logger.Info("application recorded", map[string]interface{}{
		"recordId":    rec.ID,
		"applicantId": rec.ApplicantID,
		"jobTitle":    rec.JobTitle,
	})
	return nil
}

// CountSince returns how many applications the applicant submitted at or
// after the given instant.
func (s *Store) CountSince(ctx context.Context, applicantID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM job_applications
		WHERE applicant_id = $1 AND applied_at >= $2`

	var count int
	if err := s.db.QueryRowContext(ctx, query, applicantID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}
	return count, nil
}

// Recent returns the newest records across all applicants.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.ApplicationRecord, error) {
	query := `
		SELECT id, applicant_id, job_title, job_url, company_name, applied_at
		FROM job_applications
		ORDER BY applied_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent applications: %w", err)
	}
	defer rows.Close()

	var records []models.ApplicationRecord
	for rows.Next() {
		var rec models.ApplicationRecord
		if err := rows.Scan(&rec.ID, &rec.ApplicantID, &rec.JobTitle, &rec.JobURL, &rec.CompanyName, &rec.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate application records: %w", err)
	}
	return records, nil
}

// mirror indexes the record into Elasticsearch. Non-critical.
func (s *Store) mirror(ctx context.Context, rec *models.ApplicationRecord) {
	if s.es == nil {
		return
	}

	body, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("failed to marshal record for mirror", map[string]interface{}{
			"recordId": rec.ID,
			"error":    err.Error(),
		})
		return
	}

	if err := s.es.IndexDocument(ctx, s.esIndex, rec.ID, body); err != nil {
		s.logger.Warn("failed to mirror record to elasticsearch", map[string]interface{}{
			"recordId": rec.ID,
			"error":    err.Error(),
		})
	}
}
