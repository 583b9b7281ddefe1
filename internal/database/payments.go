package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"loadboard/internal/models"
)

const paymentColumns = `id, load_id, phase, gateway_order_id, gateway_payment_id, gateway_signature, amount, created_at`

func scanPayment(row loadScanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.LoadID, &p.Phase, &p.GatewayOrderID,
		&p.GatewayPaymentID, &p.GatewaySignature, &p.Amount, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func insertPaymentTx(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO payments (load_id, phase, gateway_order_id, gateway_payment_id, gateway_signature, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.LoadID, payment.Phase, payment.GatewayOrderID,
		payment.GatewayPaymentID, payment.GatewaySignature, payment.Amount, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrPhaseAlreadySettled
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	payment.ID = id
	payment.CreatedAt = now
	return nil
}

// GetPaymentByOrderID returns the settlement record for a gateway order,
// or nil when the order has not been settled yet.
func (db *DB) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway_order_id = ?`, orderID)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by order id: %w", err)
	}
	return payment, nil
}

func (db *DB) GetPaymentByLoadAndPhase(ctx context.Context, loadID int64, phase string) (*models.Payment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE load_id = ? AND phase = ?`, loadID, phase)
	payment, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by load and phase: %w", err)
	}
	return payment, nil
}

// RecordFinalPayment stores the final settlement record and stamps the load
// with the payment reference in one transaction.
func (db *DB) RecordFinalPayment(ctx context.Context, loadID int64, payment *models.Payment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	payment.LoadID = loadID

	var status string
	var finalPaymentID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status, final_payment_id FROM loads WHERE id = ?`, loadID).
		Scan(&status, &finalPaymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLoadNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read load in tx: %w", err)
	}
	if finalPaymentID.Valid {
		return ErrPhaseAlreadySettled
	}

	if err := insertPaymentTx(ctx, tx, payment); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loads SET final_payment_id = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		payment.GatewayPaymentID, time.Now(), loadID,
	)
	if err != nil {
		return fmt.Errorf("failed to stamp final payment: %w", err)
	}

	return tx.Commit()
}
