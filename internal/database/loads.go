package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loadboard/internal/models"
)

const loadColumns = `id, source_city, destination_city, material, weight_mt, truck_type,
                 load_type, scheduled_date, trucks_required, contact_name, contact_phone,
                 status, posted_by, assigned_to, booking_fee, payment_id,
                 accepted_quote_amount, final_payment_id, cancellation_reason,
                 cancelled_at, created_at, updated_at, version`

type loadScanner interface {
	Scan(dest ...interface{}) error
}

func scanLoad(row loadScanner) (*models.Load, error) {
	l := &models.Load{}
	var assignedTo sql.NullInt64
	var paymentID, finalPaymentID, reason, contactName, contactPhone sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&l.ID, &l.SourceCity, &l.DestinationCity, &l.Material, &l.WeightMT, &l.TruckType,
		&l.LoadType, &l.ScheduledDate, &l.TrucksRequired, &contactName, &contactPhone,
		&l.Status, &l.PostedBy, &assignedTo, &l.BookingFee, &paymentID,
		&l.AcceptedQuoteAmount, &finalPaymentID, &reason,
		&cancelledAt, &l.CreatedAt, &l.UpdatedAt, &l.Version,
	)
	if err != nil {
		return nil, err
	}

	l.ContactName = contactName.String
	l.ContactPhone = contactPhone.String
	l.CancellationReason = reason.String
	if assignedTo.Valid {
		l.AssignedTo = &assignedTo.Int64
	}
	if paymentID.Valid {
		l.PaymentID = &paymentID.String
	}
	if finalPaymentID.Valid {
		l.FinalPaymentID = &finalPaymentID.String
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		l.CancelledAt = &t
	}
	return l, nil
}

// CreateLoadWithPayment inserts a load together with its booking payment
// record and the initial status event in a single transaction. A load row
// never exists without settlement evidence.
func (db *DB) CreateLoadWithPayment(ctx context.Context, load *models.Load, payment *models.Payment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO loads (
				source_city, destination_city, material, weight_mt, truck_type, load_type,
				scheduled_date, trucks_required, contact_name, contact_phone, status,
				posted_by, booking_fee, payment_id, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		load.SourceCity, load.DestinationCity, load.Material, load.WeightMT,
		load.TruckType, load.LoadType, load.ScheduledDate, load.TrucksRequired,
		load.ContactName, load.ContactPhone, models.StatusOpen,
		load.PostedBy, load.BookingFee, payment.GatewayPaymentID, now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert load: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	payment.LoadID = id
	if err := insertPaymentTx(ctx, tx, payment); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO load_status_events (load_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, models.StatusOpen, "booking fee settled", load.PostedBy, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load creation: %w", err)
	}

	load.ID = id
	load.Status = models.StatusOpen
	load.PaymentID = &payment.GatewayPaymentID
	load.CreatedAt = now
	load.UpdatedAt = now
	load.Version = 1
	return nil
}

func (db *DB) GetLoad(ctx context.Context, id int64) (*models.Load, error) {
	row := db.QueryRowContext(ctx, `SELECT `+loadColumns+` FROM loads WHERE id = ?`, id)
	load, err := scanLoad(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get load: %w", err)
	}
	return load, nil
}

// LoadFilter narrows ListLoads. Zero values mean "any".
type LoadFilter struct {
	Status     string
	PostedBy   int64
	AssignedTo int64
	Limit      int
}

func (db *DB) ListLoads(ctx context.Context, filter LoadFilter) ([]*models.Load, error) {
	query := `SELECT ` + loadColumns + ` FROM loads WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.PostedBy != 0 {
		query += ` AND posted_by = ?`
		args = append(args, filter.PostedBy)
	}
	if filter.AssignedTo != 0 {
		query += ` AND assigned_to = ?`
		args = append(args, filter.AssignedTo)
	}
	limit := filter.Limit
	if limit <= 0 || limit > models.DefaultListLimit {
		limit = models.DefaultListLimit
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list loads: %w", err)
	}
	defer rows.Close()

	var loads []*models.Load
	for rows.Next() {
		load, err := scanLoad(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan load: %w", err)
		}
		loads = append(loads, load)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loads: %w", err)
	}
	return loads, nil
}

// UpdateLoadStatusWithVersion advances the load status under an optimistic
// version check and appends the status history entry atomically.
func (db *DB) UpdateLoadStatusWithVersion(ctx context.Context, id, fromVersion int64, status, note string, changedBy int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE loads SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		status, now, id, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update load status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if exists, err := loadExistsTx(ctx, tx, id); err == nil && !exists {
			return ErrLoadNotFound
		}
		return ErrConcurrentModification
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO load_status_events (load_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, status, note, changedBy, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}

	return tx.Commit()
}

// CancelLoadWithVersion marks the load cancelled with a reason and timestamp.
func (db *DB) CancelLoadWithVersion(ctx context.Context, id, fromVersion int64, reason string, changedBy int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE loads SET status = ?, cancellation_reason = ?, cancelled_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		models.StatusCancelled, reason, now, now, id, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel load: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if exists, err := loadExistsTx(ctx, tx, id); err == nil && !exists {
			return ErrLoadNotFound
		}
		return ErrConcurrentModification
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO load_status_events (load_id, status, note, changed_by, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, models.StatusCancelled, reason, changedBy, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}

	return tx.Commit()
}

func (db *DB) GetStatusHistory(ctx context.Context, loadID int64) ([]*models.StatusEvent, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, load_id, status, note, changed_by, created_at
		 FROM load_status_events WHERE load_id = ? ORDER BY id ASC`, loadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	defer rows.Close()

	var events []*models.StatusEvent
	for rows.Next() {
		e := &models.StatusEvent{}
		var note sql.NullString
		if err := rows.Scan(&e.ID, &e.LoadID, &e.Status, &note, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		e.Note = note.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status events: %w", err)
	}
	return events, nil
}

func loadExistsTx(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM loads WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
