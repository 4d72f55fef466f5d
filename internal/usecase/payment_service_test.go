package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/event"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
	"github.com/rustamrustamv/UEMS/internal/usecase"
)

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *model.Payment, initial *model.PaymentHistory) error {
	args := m.Called(ctx, payment, initial)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Payment, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, limit, offset int) ([]*model.Payment, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*model.PaymentHistory, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PaymentHistory), args.Error(1)
}

// MockGateway is a mock implementation of the payment gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateIntent(ctx context.Context, req *gateway.CreateIntentRequest) (*gateway.CreateIntentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CreateIntentResponse), args.Error(1)
}

func (m *MockGateway) CreateRefund(ctx context.Context, req *gateway.CreateRefundRequest) (*gateway.CreateRefundResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CreateRefundResponse), args.Error(1)
}

func (m *MockGateway) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

func (m *MockGateway) Name() string {
	return "mock"
}

// MockReconciler is a mock implementation of the Reconciler slice
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Apply(ctx context.Context, req domainRepo.TransitionRequest) (*domainRepo.TransitionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainRepo.TransitionResult), args.Error(1)
}

func newPaymentService(
	payments *MockPaymentRepository,
	history *MockHistoryRepository,
	reconciler *MockReconciler,
	gw *MockGateway,
) *usecase.PaymentService {
	return usecase.NewPaymentService(payments, history, reconciler, gw, 5*time.Second, zap.NewNop())
}

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	validInput := usecase.CreatePaymentInput{
		UserID:      userID,
		Amount:      decimal.NewFromFloat(150.50),
		Currency:    "usd",
		PaymentType: model.PaymentTypeTuition,
	}

	t.Run("successful creation persists a pending record with intent correlation", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		gw := new(MockGateway)
		service := newPaymentService(payments, new(MockHistoryRepository), new(MockReconciler), gw)

		gw.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req *gateway.CreateIntentRequest) bool {
			return req.AmountMinor == 15050 &&
				req.Currency == "usd" &&
				req.Metadata["payment_id"] == req.PaymentID.String() &&
				req.Metadata["user_id"] == userID.String() &&
				req.Metadata["payment_type"] == "tuition"
		})).Return(&gateway.CreateIntentResponse{
			IntentID:     "pi_123",
			ClientSecret: "pi_123_secret",
		}, nil)

		payments.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.Status == model.PaymentStatusPending &&
				p.UserID == userID &&
				p.Currency == "USD" &&
				p.GatewayIntentID != nil && *p.GatewayIntentID == "pi_123"
		}), mock.MatchedBy(func(h *model.PaymentHistory) bool {
			return h.Status == model.PaymentStatusPending &&
				h.Source == model.ProvenanceSystem &&
				h.EventID != nil && *h.EventID == "pi_123"
		})).Return(nil)

		result, err := service.CreatePayment(ctx, validInput)

		assert.NoError(t, err)
		assert.Equal(t, "pi_123_secret", result.ClientSecret)
		assert.Equal(t, model.PaymentStatusPending, result.Payment.Status)
		assert.NotEqual(t, uuid.Nil, result.Payment.ID)
		payments.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("gateway failure leaves no local state", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		gw := new(MockGateway)
		service := newPaymentService(payments, new(MockHistoryRepository), new(MockReconciler), gw)

		gw.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, &gateway.GatewayError{
			Code:    "card_declined",
			Message: "intent creation failed",
		})

		result, err := service.CreatePayment(ctx, validInput)

		assert.Error(t, err)
		assert.Nil(t, result)
		payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount is refused before the gateway", func(t *testing.T) {
		gw := new(MockGateway)
		service := newPaymentService(new(MockPaymentRepository), new(MockHistoryRepository), new(MockReconciler), gw)

		input := validInput
		input.Amount = decimal.Zero

		_, err := service.CreatePayment(ctx, input)

		assert.Error(t, err)
		gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	})

	t.Run("unknown payment type is refused", func(t *testing.T) {
		gw := new(MockGateway)
		service := newPaymentService(new(MockPaymentRepository), new(MockHistoryRepository), new(MockReconciler), gw)

		input := validInput
		input.PaymentType = model.PaymentType("rent")

		_, err := service.CreatePayment(ctx, input)

		assert.Error(t, err)
		gw.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_RequestRefund(t *testing.T) {
	ctx := context.Background()
	paymentID := uuid.New()
	intentID := "pi_123"

	succeededPayment := func() *model.Payment {
		return &model.Payment{
			ID:              paymentID,
			UserID:          uuid.New(),
			Amount:          decimal.NewFromInt(100),
			Currency:        "USD",
			Status:          model.PaymentStatusSucceeded,
			PaymentType:     model.PaymentTypeTuition,
			GatewayIntentID: &intentID,
		}
	}

	t.Run("successful refund applies with the refund id as idempotency key", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		gw := new(MockGateway)
		reconciler := new(MockReconciler)
		service := newPaymentService(payments, new(MockHistoryRepository), reconciler, gw)

		payments.On("GetByID", ctx, paymentID).Return(succeededPayment(), nil)
		gw.On("CreateRefund", mock.Anything, &gateway.CreateRefundRequest{
			IntentID: intentID,
			Reason:   "duplicate charge",
		}).Return(&gateway.CreateRefundResponse{RefundID: "re_456", Status: "succeeded"}, nil)
		reconciler.On("Apply", ctx, mock.MatchedBy(func(req domainRepo.TransitionRequest) bool {
			return req.PaymentID == paymentID &&
				req.Status == model.PaymentStatusRefunded &&
				req.Provenance.Source == model.ProvenanceAdmin &&
				req.Provenance.EventID == "re_456" &&
				req.Provenance.ActorID == "admin-1"
		})).Return(&domainRepo.TransitionResult{
			Outcome:     event.OutcomeApplied,
			PriorStatus: model.PaymentStatusSucceeded,
			NewStatus:   model.PaymentStatusRefunded,
		}, nil)

		result, err := service.RequestRefund(ctx, paymentID, "admin-1", "duplicate charge")

		assert.NoError(t, err)
		assert.Equal(t, "re_456", result.RefundID)
		assert.Equal(t, event.OutcomeApplied, result.Transition.Outcome)
		payments.AssertExpectations(t)
		gw.AssertExpectations(t)
		reconciler.AssertExpectations(t)
	})

	t.Run("non-succeeded payment is refused before the gateway", func(t *testing.T) {
		for _, status := range []model.PaymentStatus{
			model.PaymentStatusPending,
			model.PaymentStatusProcessing,
			model.PaymentStatusFailed,
			model.PaymentStatusRefunded,
		} {
			payments := new(MockPaymentRepository)
			gw := new(MockGateway)
			service := newPaymentService(payments, new(MockHistoryRepository), new(MockReconciler), gw)

			payment := succeededPayment()
			payment.Status = status
			payments.On("GetByID", ctx, paymentID).Return(payment, nil)

			_, err := service.RequestRefund(ctx, paymentID, "admin-1", "")

			var illegal *domainErrors.IllegalTransitionError
			assert.ErrorAs(t, err, &illegal, "status %s", status)
			assert.Equal(t, string(status), illegal.From)
			gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
		}
	})

	t.Run("gateway refund failure leaves the record untouched", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		gw := new(MockGateway)
		reconciler := new(MockReconciler)
		service := newPaymentService(payments, new(MockHistoryRepository), reconciler, gw)

		payments.On("GetByID", ctx, paymentID).Return(succeededPayment(), nil)
		gw.On("CreateRefund", mock.Anything, mock.Anything).Return(nil, &gateway.GatewayError{
			Code:    "charge_already_refunded",
			Message: "refund failed",
		})

		_, err := service.RequestRefund(ctx, paymentID, "admin-1", "")

		assert.Error(t, err)
		reconciler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	})

	t.Run("unknown payment id propagates not found", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		gw := new(MockGateway)
		service := newPaymentService(payments, new(MockHistoryRepository), new(MockReconciler), gw)

		payments.On("GetByID", ctx, paymentID).Return(nil, domainErrors.ErrPaymentNotFound)

		_, err := service.RequestRefund(ctx, paymentID, "admin-1", "")

		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
		gw.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
	})
}

func TestPaymentService_ListPayments(t *testing.T) {
	ctx := context.Background()

	t.Run("limit is clamped and defaults applied", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		service := newPaymentService(payments, new(MockHistoryRepository), new(MockReconciler), new(MockGateway))

		payments.On("List", ctx, 20, 0).Return([]*model.Payment{}, nil).Once()
		payments.On("List", ctx, 100, 0).Return([]*model.Payment{}, nil).Once()

		_, err := service.ListPayments(ctx, nil, 0, -5)
		assert.NoError(t, err)

		_, err = service.ListPayments(ctx, nil, 500, 0)
		assert.NoError(t, err)

		payments.AssertExpectations(t)
	})

	t.Run("user scope routes to the user listing", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		service := newPaymentService(payments, new(MockHistoryRepository), new(MockReconciler), new(MockGateway))

		userID := uuid.New()
		payments.On("ListByUser", ctx, userID, 20, 0).Return([]*model.Payment{}, nil)

		_, err := service.ListPayments(ctx, &userID, 20, 0)

		assert.NoError(t, err)
		payments.AssertExpectations(t)
	})
}

func TestPaymentService_GetHistory(t *testing.T) {
	ctx := context.Background()
	paymentID := uuid.New()

	t.Run("entries are returned in append order without re-fetching the payment", func(t *testing.T) {
		payments := new(MockPaymentRepository)
		history := new(MockHistoryRepository)
		service := newPaymentService(payments, history, new(MockReconciler), new(MockGateway))

		entries := []*model.PaymentHistory{
			{ID: uuid.New(), PaymentID: paymentID, Status: model.PaymentStatusPending},
			{ID: uuid.New(), PaymentID: paymentID, Status: model.PaymentStatusSucceeded},
		}
		history.On("ListByPayment", ctx, paymentID).Return(entries, nil)

		got, err := service.GetHistory(ctx, paymentID)

		assert.NoError(t, err)
		assert.Equal(t, entries, got)
		payments.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}
