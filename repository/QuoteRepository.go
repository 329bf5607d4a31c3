package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backend/models"
	"backend/services"
	"backend/utils"

	"github.com/google/uuid"
)

// The quote aggregate is the unit of consistency: every mutation goes through
// a single read-modify-write, and UpdateQuote rejects writes against a stale
// version so client and staff can never clobber each other mid-transition.

// EnsureQuoteSchema creates the quote tables and the number sequence when
// they do not exist yet.
func EnsureQuoteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS quote_number_seq START 1`,
		`CREATE TABLE IF NOT EXISTS quote (
			id TEXT PRIMARY KEY,
			number TEXT UNIQUE NOT NULL,
			status TEXT NOT NULL,
			current_step TEXT NOT NULL,
			progress_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			client JSONB NOT NULL DEFAULT '{}',
			event JSONB NOT NULL DEFAULT '{}',
			line_items JSONB NOT NULL DEFAULT '{}',
			client_request JSONB NOT NULL DEFAULT '{}',
			interview JSONB NOT NULL DEFAULT '{}',
			amounts JSONB,
			history JSONB NOT NULL DEFAULT '[]',
			staff_responses JSONB NOT NULL DEFAULT '[]',
			signatures JSONB NOT NULL DEFAULT '[]',
			documents JSONB NOT NULL DEFAULT '{}',
			validity_until TIMESTAMPTZ NOT NULL,
			submitted_at TIMESTAMPTZ,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_status ON quote (status)`,
		`CREATE INDEX IF NOT EXISTS idx_quote_validity ON quote (validity_until)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure quote schema: %v", err)
		}
	}
	return nil
}

// AllocateQuoteNumber draws the next number from the sequence. Called exactly
// once per quote, before first persistence; the number is never reassigned.
func AllocateQuoteNumber(db *sql.DB) (string, error) {
	var n int64
	if err := db.QueryRow(`SELECT nextval('quote_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("failed to allocate quote number: %v", err)
	}
	return fmt.Sprintf("EVT-%d-%04d", time.Now().Year(), n), nil
}

// CreateQuote assigns identity (uuid, number, version 1) and inserts the
// aggregate.
func CreateQuote(db *sql.DB, q *models.Quote) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Number == "" {
		number, err := AllocateQuoteNumber(db)
		if err != nil {
			return err
		}
		q.Number = number
	}
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.Version = 1

	ctx, cancel := utils.GetDefaultQueryContext(context.Background())
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO quote (
			id, number, status, current_step, progress_percent,
			client, event, line_items, client_request, interview, amounts,
			history, staff_responses, signatures, documents,
			validity_until, submitted_at, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		q.ID, q.Number, q.Status, q.CurrentStep, q.ProgressPercent,
		models.JSONB{V: q.Client}, models.JSONB{V: q.Event}, models.JSONB{V: q.LineItems},
		models.JSONB{V: q.ClientRequest}, models.JSONB{V: q.Interview}, amountsValue(q),
		models.JSONB{V: q.History}, models.JSONB{V: q.StaffResponses},
		models.JSONB{V: q.Signatures}, models.JSONB{V: q.Documents},
		q.ValidityUntil, q.SubmittedAt, q.Version, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %v", err)
	}
	return nil
}

func amountsValue(q *models.Quote) interface{} {
	if q.Amounts == nil {
		return nil
	}
	return models.JSONB{V: q.Amounts}
}

const quoteColumns = `
	id, number, status, current_step, progress_percent,
	client, event, line_items, client_request, interview, amounts,
	history, staff_responses, signatures, documents,
	validity_until, submitted_at, version, created_at, updated_at`

func scanQuote(row interface{ Scan(...interface{}) error }) (*models.Quote, error) {
	var q models.Quote
	q.Amounts = &models.Breakdown{}
	var amountsRaw sql.NullString

	err := row.Scan(
		&q.ID, &q.Number, &q.Status, &q.CurrentStep, &q.ProgressPercent,
		&models.JSONB{V: &q.Client}, &models.JSONB{V: &q.Event}, &models.JSONB{V: &q.LineItems},
		&models.JSONB{V: &q.ClientRequest}, &models.JSONB{V: &q.Interview}, &amountsRaw,
		&models.JSONB{V: &q.History}, &models.JSONB{V: &q.StaffResponses},
		&models.JSONB{V: &q.Signatures}, &models.JSONB{V: &q.Documents},
		&q.ValidityUntil, &q.SubmittedAt, &q.Version, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if amountsRaw.Valid && amountsRaw.String != "" && amountsRaw.String != "null" {
		holder := models.JSONB{V: q.Amounts}
		if err := holder.Scan(amountsRaw.String); err != nil {
			return nil, fmt.Errorf("failed to decode amounts: %v", err)
		}
	} else {
		q.Amounts = nil
	}
	return &q, nil
}

// GetQuoteByID fetches the full aggregate.
func GetQuoteByID(db *sql.DB, id string) (*models.Quote, error) {
	ctx, cancel := utils.GetFastQueryContext(context.Background())
	defer cancel()

	row := db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quote WHERE id = $1`, id)
	q, err := scanQuote(row)
	if err == sql.ErrNoRows {
		return nil, &services.NotFoundError{Entity: "quote", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quote: %v", err)
	}
	return q, nil
}

// UpdateQuote writes the aggregate back with a compare-and-swap on the
// version token. A stale version returns ConflictError and writes nothing;
// on success the in-memory version is bumped to match the row.
func UpdateQuote(db *sql.DB, q *models.Quote) error {
	ctx, cancel := utils.GetDefaultQueryContext(context.Background())
	defer cancel()

	q.UpdatedAt = time.Now().UTC()

	result, err := db.ExecContext(ctx, `
		UPDATE quote SET
			status = $1, current_step = $2, progress_percent = $3,
			client = $4, event = $5, line_items = $6, client_request = $7,
			interview = $8, amounts = $9, history = $10, staff_responses = $11,
			signatures = $12, documents = $13, validity_until = $14,
			submitted_at = $15, version = version + 1, updated_at = $16
		WHERE id = $17 AND version = $18`,
		q.Status, q.CurrentStep, q.ProgressPercent,
		models.JSONB{V: q.Client}, models.JSONB{V: q.Event}, models.JSONB{V: q.LineItems},
		models.JSONB{V: q.ClientRequest}, models.JSONB{V: q.Interview}, amountsValue(q),
		models.JSONB{V: q.History}, models.JSONB{V: q.StaffResponses},
		models.JSONB{V: q.Signatures}, models.JSONB{V: q.Documents},
		q.ValidityUntil, q.SubmittedAt, q.UpdatedAt,
		q.ID, q.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}
	if affected == 0 {
		// Either the quote vanished or someone else wrote first.
		var exists bool
		if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM quote WHERE id = $1)`, q.ID).Scan(&exists); err == nil && !exists {
			return &services.NotFoundError{Entity: "quote", ID: q.ID}
		}
		return &services.ConflictError{ID: q.ID, Version: q.Version}
	}

	q.Version++
	return nil
}

// ListQuotes returns a page of quotes for the staff dashboard, newest first,
// optionally filtered by status.
func ListQuotes(db *sql.DB, status string, page, limit int) ([]models.Quote, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	ctx, cancel := utils.GetDefaultQueryContext(context.Background())
	defer cancel()

	countQuery := `SELECT COUNT(*) FROM quote`
	listQuery := `SELECT ` + quoteColumns + ` FROM quote ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	args := []interface{}{limit, offset}

	var total int
	if status != "" {
		countQuery = `SELECT COUNT(*) FROM quote WHERE status = $1`
		listQuery = `SELECT ` + quoteColumns + ` FROM quote WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		if err := db.QueryRowContext(ctx, countQuery, status).Scan(&total); err != nil {
			return nil, models.Pagination{}, fmt.Errorf("failed to count quotes: %v", err)
		}
		args = []interface{}{status, limit, offset}
	} else {
		if err := db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
			return nil, models.Pagination{}, fmt.Errorf("failed to count quotes: %v", err)
		}
	}

	rows, err := db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list quotes: %v", err)
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, models.Pagination{}, fmt.Errorf("failed to scan quote: %v", err)
		}
		quotes = append(quotes, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Pagination{}, err
	}

	totalPages := (total + limit - 1) / limit
	pagination := models.Pagination{
		CurrentPage:  page,
		PageSize:     limit,
		TotalRecords: total,
		TotalPages:   totalPages,
		HasNext:      page < totalPages,
		HasPrev:      page > 1,
	}
	return quotes, pagination, nil
}

// ListExpirableQuoteIDs returns the ids of quotes whose validity window has
// passed while still in the unresolved range. The workflow re-checks
// eligibility before applying the transition.
func ListExpirableQuoteIDs(db *sql.DB, now time.Time) ([]string, error) {
	ctx, cancel := utils.GetSlowQueryContext(context.Background())
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id FROM quote
		WHERE validity_until < $1
		  AND status IN ('submitted', 'under_review', 'staff_revision', 'client_revision', 'client_approved')`,
		now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expirable quotes: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
