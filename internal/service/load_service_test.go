package service

import (
	"context"
	"io"
	"testing"
	"time"

	"loadboard/internal/database"
	"loadboard/internal/domain"
	"loadboard/internal/events"
	"loadboard/internal/fees"
	"loadboard/internal/gateway"
	"loadboard/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testCalculator(t *testing.T) *fees.Calculator {
	t.Helper()
	calc, err := fees.NewCalculator(fees.Schedule{
		BaseFee:            50000,
		Materials:          map[string]int64{"Electronics": 30000},
		DefaultMaterialFee: 10000,
		WeightBrackets: []fees.WeightBracket{
			{UpToMT: 5, Fee: 10000},
			{UpToMT: 15, Fee: 25000},
			{UpToMT: -1, Fee: 50000},
		},
		TruckTypes:      map[string]int64{"Container": 20000},
		DefaultTruckFee: 0,
		PartLoadFactor:  0.6,
	})
	require.NoError(t, err)
	return calc
}

func testDraft() models.LoadDraft {
	return models.LoadDraft{
		SourceCity:      "Mumbai",
		DestinationCity: "Delhi",
		Material:        "Electronics",
		WeightMT:        10,
		TruckType:       "Any",
		LoadType:        models.LoadTypeFull,
		ScheduledDate:   time.Now().AddDate(0, 0, 3),
		TrucksRequired:  1,
		ContactName:     "Ravi",
		ContactPhone:    "+919800000001",
	}
}

func newLoadService(t *testing.T, repo domain.Repository, orders domain.OrderRepository, gw domain.PaymentGateway, worker domain.SyncWorker) *LoadService {
	t.Helper()
	logger := zerolog.New(io.Discard)
	return NewLoadService(repo, orders, gw, testCalculator(t), events.NewEventBus(), worker, "INR", 30*time.Minute, &logger)
}

func TestPostLoad(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	customer := models.Actor{UserID: 42, Role: models.RoleCustomer}

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		orders := new(mockOrders)
		gw := new(mockGateway)
		svc := NewLoadService(repo, orders, gw, testCalculator(t), events.NewEventBus(), nil, "INR", 30*time.Minute, &logger)

		// base 50000 + weight 25000 + material 30000 + truck 0
		gw.On("CreateOrder", ctx, int64(105000), "INR", mock.Anything).
			Return(&gateway.Order{ID: "order_1", Amount: 105000, Currency: "INR"}, nil).Once()
		orders.On("Put", ctx, mock.MatchedBy(func(o *models.PendingOrder) bool {
			return o.OrderID == "order_1" &&
				o.Phase == models.PhaseBooking &&
				o.Draft != nil &&
				o.Draft.PostedBy == 42 &&
				o.BookingFee == 105000
		}), 30*time.Minute).Return(nil).Once()

		result, err := svc.PostLoad(ctx, customer, testDraft())
		require.NoError(t, err)
		assert.Equal(t, "order_1", result.OrderID)
		assert.Equal(t, int64(105000), result.Amount)
		assert.Equal(t, int64(105000), result.Breakdown.Total)

		gw.AssertExpectations(t)
		orders.AssertExpectations(t)
		repo.AssertNotCalled(t, "CreateLoadWithPayment")
	})

	t.Run("DriverForbidden", func(t *testing.T) {
		svc := newLoadService(t, new(mockRepo), new(mockOrders), new(mockGateway), nil)
		_, err := svc.PostLoad(ctx, models.Actor{UserID: 7, Role: models.RoleDriver}, testDraft())
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc := newLoadService(t, new(mockRepo), new(mockOrders), new(mockGateway), nil)

		draft := testDraft()
		draft.SourceCity = ""
		_, err := svc.PostLoad(ctx, customer, draft)
		assert.ErrorIs(t, err, ErrInvalidInput)

		draft = testDraft()
		draft.WeightMT = 0
		_, err = svc.PostLoad(ctx, customer, draft)
		assert.ErrorIs(t, err, ErrInvalidInput)

		draft = testDraft()
		draft.LoadType = "bulk"
		_, err = svc.PostLoad(ctx, customer, draft)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestTransitionStatus(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()
	driverID := int64(7)
	driver := models.Actor{UserID: driverID, Role: models.RoleDriver}
	customer := models.Actor{UserID: 42, Role: models.RoleCustomer}

	assignedLoad := func() *models.Load {
		return &models.Load{
			ID:         1,
			Status:     models.StatusAssigned,
			PostedBy:   42,
			AssignedTo: &driverID,
			Version:    3,
		}
	}

	t.Run("AssignedDriverAdvances", func(t *testing.T) {
		repo := new(mockRepo)
		worker := new(mockSyncWorker)
		svc := NewLoadService(repo, nil, nil, testCalculator(t), events.NewEventBus(), worker, "INR", 0, &logger)

		load := assignedLoad()
		repo.On("GetLoad", ctx, int64(1)).Return(load, nil).Once()
		repo.On("UpdateLoadStatusWithVersion", ctx, int64(1), int64(3), models.StatusPickedUp, "", driverID).Return(nil).Once()
		picked := assignedLoad()
		picked.Status = models.StatusPickedUp
		picked.Version = 4
		repo.On("GetLoad", ctx, int64(1)).Return(picked, nil).Once()
		worker.On("EnqueueTask", ctx, "update_status", int64(1), picked, models.StatusPickedUp).Return(nil).Once()

		updated, err := svc.TransitionStatus(ctx, driver, 1, models.StatusPickedUp, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusPickedUp, updated.Status)
		repo.AssertExpectations(t)
		worker.AssertExpectations(t)
	})

	t.Run("UnassignedDriverForbidden", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		repo.On("GetLoad", ctx, int64(1)).Return(assignedLoad(), nil).Once()

		_, err := svc.TransitionStatus(ctx, models.Actor{UserID: 99, Role: models.RoleDriver}, 1, models.StatusPickedUp, "")
		assert.ErrorIs(t, err, ErrForbidden)
		repo.AssertNotCalled(t, "UpdateLoadStatusWithVersion")
	})

	t.Run("DirectAssignRejected", func(t *testing.T) {
		svc := newLoadService(t, new(mockRepo), nil, nil, nil)
		_, err := svc.TransitionStatus(ctx, customer, 1, models.StatusAssigned, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("IllegalEdge", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		repo.On("GetLoad", ctx, int64(1)).Return(assignedLoad(), nil).Once()

		_, err := svc.TransitionStatus(ctx, driver, 1, models.StatusDelivered, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("CompleteRequiresFinalPayment", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		load := assignedLoad()
		load.Status = models.StatusDelivered
		repo.On("GetLoad", ctx, int64(1)).Return(load, nil).Once()

		_, err := svc.TransitionStatus(ctx, customer, 1, models.StatusCompleted, "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("CompleteAfterSettlement", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		finalID := "pay_final"
		load := assignedLoad()
		load.Status = models.StatusDelivered
		load.FinalPaymentID = &finalID
		repo.On("GetLoad", ctx, int64(1)).Return(load, nil).Once()
		repo.On("UpdateLoadStatusWithVersion", ctx, int64(1), int64(3), models.StatusCompleted, "", customer.UserID).Return(nil).Once()
		completed := assignedLoad()
		completed.Status = models.StatusCompleted
		repo.On("GetLoad", ctx, int64(1)).Return(completed, nil).Once()

		updated, err := svc.TransitionStatus(ctx, customer, 1, models.StatusCompleted, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, updated.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		svc := newLoadService(t, new(mockRepo), nil, nil, nil)
		_, err := svc.TransitionStatus(ctx, driver, 1, "teleported", "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCancelLoad(t *testing.T) {
	ctx := context.Background()
	customer := models.Actor{UserID: 42, Role: models.RoleCustomer}

	t.Run("OwnerCancels", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		load := &models.Load{ID: 1, Status: models.StatusOpen, PostedBy: 42, Version: 1}
		repo.On("GetLoad", ctx, int64(1)).Return(load, nil).Once()
		repo.On("CancelLoadWithVersion", ctx, int64(1), int64(1), "rate too high", customer.UserID).Return(nil).Once()
		cancelled := &models.Load{ID: 1, Status: models.StatusCancelled, PostedBy: 42, Version: 2}
		repo.On("GetLoad", ctx, int64(1)).Return(cancelled, nil).Once()

		updated, err := svc.Cancel(ctx, customer, 1, "rate too high")
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		repo.AssertExpectations(t)
	})

	t.Run("ReasonRequired", func(t *testing.T) {
		svc := newLoadService(t, new(mockRepo), nil, nil, nil)
		_, err := svc.Cancel(ctx, customer, 1, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("StrangerForbidden", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		load := &models.Load{ID: 1, Status: models.StatusOpen, PostedBy: 42, Version: 1}
		repo.On("GetLoad", ctx, int64(1)).Return(load, nil).Once()

		_, err := svc.Cancel(ctx, models.Actor{UserID: 9, Role: models.RoleCustomer}, 1, "nope")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("DeliveredNotCancellable", func(t *testing.T) {
		repo := new(mockRepo)
		svc := newLoadService(t, repo, nil, nil, nil)

		load := &models.Load{ID: 1, Status: models.StatusDelivered, PostedBy: 42, Version: 5}
		repo.On("GetLoad", ctx, int64(1)).Return(load, nil).Once()

		_, err := svc.Cancel(ctx, customer, 1, "changed my mind")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		repo.AssertNotCalled(t, "CancelLoadWithVersion")
	})
}

func TestListLoadsClampsLimit(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := newLoadService(t, repo, nil, nil, nil)

	repo.On("ListLoads", ctx, database.LoadFilter{Limit: models.DefaultListLimit}).
		Return([]*models.Load{}, nil).Once()

	_, err := svc.ListLoads(ctx, models.Actor{UserID: 1, Role: models.RoleCustomer}, database.LoadFilter{Limit: 5000})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
