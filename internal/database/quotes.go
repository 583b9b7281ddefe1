package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loadboard/internal/models"
)

const quoteColumns = `id, load_id, transporter_id, amount, message, estimated_days, status, created_at, updated_at`

func scanQuote(row loadScanner) (*models.Quote, error) {
	q := &models.Quote{}
	var message sql.NullString
	err := row.Scan(&q.ID, &q.LoadID, &q.TransporterID, &q.Amount, &message,
		&q.EstimatedDays, &q.Status, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.Message = message.String
	return q, nil
}

// CreateQuoteWithLock inserts a pending quote inside one transaction that
// re-checks the load status and the duplicate-quote rule, and moves an open
// load to quoted on its first bid.
func (db *DB) CreateQuoteWithLock(ctx context.Context, quote *models.Quote) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	var version int64
	err = tx.QueryRowContext(ctx, `SELECT status, version FROM loads WHERE id = ?`, quote.LoadID).
		Scan(&status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLoadNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read load in tx: %w", err)
	}
	if !models.AcceptsQuotes(status) {
		return ErrLoadNotQuotable
	}

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotes WHERE load_id = ? AND transporter_id = ? AND status != ?`,
		quote.LoadID, quote.TransporterID, models.QuoteStatusWithdrawn,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check duplicate quote: %w", err)
	}
	if existing > 0 {
		return ErrDuplicateQuote
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO quotes (load_id, transporter_id, amount, message, estimated_days, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		quote.LoadID, quote.TransporterID, quote.Amount, quote.Message,
		quote.EstimatedDays, models.QuoteStatusPending, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if status == models.StatusOpen {
		res, err := tx.ExecContext(ctx,
			`UPDATE loads SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
			models.StatusQuoted, now, quote.LoadID, version,
		)
		if err != nil {
			return fmt.Errorf("failed to mark load quoted: %w", err)
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return ErrConcurrentModification
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO load_status_events (load_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
			quote.LoadID, models.StatusQuoted, "first quote received", quote.TransporterID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert status event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quote: %w", err)
	}

	quote.ID = id
	quote.Status = models.QuoteStatusPending
	quote.CreatedAt = now
	quote.UpdatedAt = now
	return nil
}

func (db *DB) GetQuote(ctx context.Context, id int64) (*models.Quote, error) {
	row := db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, id)
	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return quote, nil
}

func (db *DB) GetQuotesByLoad(ctx context.Context, loadID int64) ([]*models.Quote, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE load_id = ? ORDER BY created_at ASC`, loadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotes for load: %w", err)
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return quotes, nil
}

// AcceptQuote performs the full acceptance as one transaction: the winning
// quote is accepted, every other pending quote on the load is rejected, and
// the load moves to assigned with the driver and amount recorded. Partial
// application is never observable.
func (db *DB) AcceptQuote(ctx context.Context, quoteID, changedBy int64) (*models.Quote, *models.Load, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = ?`, quoteID)
	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read quote in tx: %w", err)
	}
	if quote.Status != models.QuoteStatusPending {
		return nil, nil, ErrQuoteNotPending
	}

	var status string
	var version int64
	err = tx.QueryRowContext(ctx, `SELECT status, version FROM loads WHERE id = ?`, quote.LoadID).
		Scan(&status, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrLoadNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read load in tx: %w", err)
	}
	if status != models.StatusQuoted {
		return nil, nil, ErrLoadNotQuoted
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE quotes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		models.QuoteStatusAccepted, now, quoteID, models.QuoteStatusPending,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to accept quote: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return nil, nil, ErrQuoteNotPending
	}

	// The marketplace closes once one quote wins.
	_, err = tx.ExecContext(ctx,
		`UPDATE quotes SET status = ?, updated_at = ? WHERE load_id = ? AND id != ? AND status = ?`,
		models.QuoteStatusRejected, now, quote.LoadID, quoteID, models.QuoteStatusPending,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reject competing quotes: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE loads SET status = ?, assigned_to = ?, accepted_quote_amount = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ? AND status = ?`,
		models.StatusAssigned, quote.TransporterID, quote.Amount, now,
		quote.LoadID, version, models.StatusQuoted,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to assign load: %w", err)
	}
	rows, _ = res.RowsAffected()
	if rows == 0 {
		return nil, nil, ErrConcurrentModification
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO load_status_events (load_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		quote.LoadID, models.StatusAssigned, fmt.Sprintf("quote %d accepted", quoteID), changedBy, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert status event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit quote acceptance: %w", err)
	}

	quote.Status = models.QuoteStatusAccepted
	quote.UpdatedAt = now

	load, err := db.GetLoad(ctx, quote.LoadID)
	if err != nil {
		return quote, nil, err
	}
	return quote, load, nil
}

// UpdateQuoteStatusPending moves a pending quote to a terminal state. The
// pending guard in the WHERE clause keeps terminal states final.
func (db *DB) UpdateQuoteStatusPending(ctx context.Context, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE quotes SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, time.Now(), id, models.QuoteStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update quote status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var one int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM quotes WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuoteNotFound
		}
		return ErrQuoteNotPending
	}
	return nil
}
