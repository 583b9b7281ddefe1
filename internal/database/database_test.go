package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loadboard/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	return db
}

func testLoad(postedBy int64) *models.Load {
	return &models.Load{
		SourceCity:      "Mumbai",
		DestinationCity: "Delhi",
		Material:        "Electronics",
		WeightMT:        10,
		TruckType:       "Any",
		LoadType:        models.LoadTypeFull,
		ScheduledDate:   time.Now().AddDate(0, 0, 3),
		TrucksRequired:  1,
		ContactName:     "Shipper",
		ContactPhone:    "9999999999",
		PostedBy:        postedBy,
		BookingFee:      150000,
	}
}

func testBookingPayment(orderID, paymentID string, amount int64) *models.Payment {
	return &models.Payment{
		Phase:            models.PhaseBooking,
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		GatewaySignature: "sig",
		Amount:           amount,
	}
}

func createTestLoad(t *testing.T, db *DB, postedBy int64, orderID string) *models.Load {
	t.Helper()
	load := testLoad(postedBy)
	payment := testBookingPayment(orderID, "pay_"+orderID, load.BookingFee)
	require.NoError(t, db.CreateLoadWithPayment(context.Background(), load, payment))
	return load
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test_dir")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestCreateLoadWithPayment(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	load := createTestLoad(t, db, 1, "order_1")
	assert.NotZero(t, load.ID)
	assert.Equal(t, models.StatusOpen, load.Status)
	assert.Equal(t, int64(1), load.Version)
	require.NotNil(t, load.PaymentID)
	assert.Equal(t, "pay_order_1", *load.PaymentID)

	got, err := db.GetLoad(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", got.SourceCity)
	assert.Equal(t, int64(150000), got.BookingFee)
	assert.Nil(t, got.AssignedTo)

	// Booking payment is on record and the history starts at open.
	payment, err := db.GetPaymentByOrderID(ctx, "order_1")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, load.ID, payment.LoadID)
	assert.Equal(t, models.PhaseBooking, payment.Phase)

	history, err := db.GetStatusHistory(ctx, load.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusOpen, history[0].Status)
}

func TestGetLoad_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetLoad(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrLoadNotFound)
}

func TestListLoads(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	createTestLoad(t, db, 1, "order_a")
	createTestLoad(t, db, 2, "order_b")

	all, err := db.ListLoads(ctx, LoadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := db.ListLoads(ctx, LoadFilter{PostedBy: 1})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].PostedBy)

	open, err := db.ListLoads(ctx, LoadFilter{Status: models.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	none, err := db.ListLoads(ctx, LoadFilter{Status: models.StatusDelivered})
	require.NoError(t, err)
	assert.Len(t, none, 0)
}

func TestUpdateLoadStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	load := createTestLoad(t, db, 1, "order_1")

	err := db.UpdateLoadStatusWithVersion(ctx, load.ID, load.Version, models.StatusQuoted, "note", 5)
	require.NoError(t, err)

	got, err := db.GetLoad(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuoted, got.Status)
	assert.Equal(t, int64(2), got.Version)

	// Stale version must not overwrite.
	err = db.UpdateLoadStatusWithVersion(ctx, load.ID, load.Version, models.StatusCancelled, "", 5)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	err = db.UpdateLoadStatusWithVersion(ctx, 9999, 1, models.StatusQuoted, "", 5)
	assert.ErrorIs(t, err, ErrLoadNotFound)

	history, err := db.GetStatusHistory(ctx, load.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.StatusOpen, history[0].Status)
	assert.Equal(t, models.StatusQuoted, history[1].Status)
	assert.Equal(t, int64(5), history[1].ChangedBy)
}

func TestCancelLoadWithVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	load := createTestLoad(t, db, 1, "order_1")

	err := db.CancelLoadWithVersion(ctx, load.ID, load.Version, "found another carrier", 1)
	require.NoError(t, err)

	got, err := db.GetLoad(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, "found another carrier", got.CancellationReason)
	require.NotNil(t, got.CancelledAt)

	err = db.CancelLoadWithVersion(ctx, load.ID, load.Version, "again", 1)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestRecordFinalPayment(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	load := createTestLoad(t, db, 1, "order_1")

	final := &models.Payment{
		LoadID:           load.ID,
		Phase:            models.PhaseFinal,
		GatewayOrderID:   "order_final",
		GatewayPaymentID: "pay_final",
		GatewaySignature: "sig",
		Amount:           350000,
	}
	require.NoError(t, db.RecordFinalPayment(ctx, load.ID, final))

	got, err := db.GetLoad(ctx, load.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FinalPaymentID)
	assert.Equal(t, "pay_final", *got.FinalPaymentID)

	// A phase settles at most once per load.
	err = db.RecordFinalPayment(ctx, load.ID, &models.Payment{
		Phase:            models.PhaseFinal,
		GatewayOrderID:   "order_final_2",
		GatewayPaymentID: "pay_final_2",
		GatewaySignature: "sig",
		Amount:           350000,
	})
	assert.ErrorIs(t, err, ErrPhaseAlreadySettled)

	byPhase, err := db.GetPaymentByLoadAndPhase(ctx, load.ID, models.PhaseFinal)
	require.NoError(t, err)
	require.NotNil(t, byPhase)
	assert.Equal(t, "order_final", byPhase.GatewayOrderID)

	missing, err := db.GetPaymentByOrderID(ctx, "no_such_order")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateGatewayOrderRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	createTestLoad(t, db, 1, "order_1")

	load := testLoad(2)
	err := db.CreateLoadWithPayment(context.Background(), load,
		testBookingPayment("order_1", "pay_other", load.BookingFee))
	assert.ErrorIs(t, err, ErrPhaseAlreadySettled)
}
