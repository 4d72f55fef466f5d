package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/event"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

// MockVerifier is a mock implementation of WebhookVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Event), args.Error(1)
}

// MockProcessor is a mock implementation of WebhookProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessWebhookEvent(ctx context.Context, ev *gateway.Event) (*domainRepo.TransitionResult, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainRepo.TransitionResult), args.Error(1)
}

func webhookRequest(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookHandler_HandleWebhook(t *testing.T) {
	logger := zap.NewNop()
	paymentID := uuid.New()
	succeeded := model.PaymentStatusSucceeded

	verifiedEvent := func() *gateway.Event {
		return &gateway.Event{
			ID:        "evt_1",
			Type:      "payment_intent.succeeded",
			PaymentID: &paymentID,
			Status:    &succeeded,
		}
	}

	t.Run("applied event answers 200 with the outcome", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		ev := verifiedEvent()
		verifier.On("VerifyWebhook", []byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef").Return(ev, nil)
		processor.On("ProcessWebhookEvent", mock.Anything, ev).Return(&domainRepo.TransitionResult{
			Outcome:     event.OutcomeApplied,
			PriorStatus: model.PaymentStatusPending,
			NewStatus:   model.PaymentStatusSucceeded,
		}, nil)

		c, rec := webhookRequest(`{"id":"evt_1"}`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"outcome":"applied"`)
		verifier.AssertExpectations(t)
		processor.AssertExpectations(t)
	})

	t.Run("invalid signature is acknowledged and never reaches the engine", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		verifier.On("VerifyWebhook", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("stripe: %w", domainErrors.ErrInvalidSignature))

		c, rec := webhookRequest(`{}`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"received":true`)
		processor.AssertNotCalled(t, "ProcessWebhookEvent", mock.Anything, mock.Anything)
	})

	t.Run("malformed payload is acknowledged and never reaches the engine", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		verifier.On("VerifyWebhook", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("stripe: %w", domainErrors.ErrMalformedPayload))

		c, rec := webhookRequest(`not json`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		processor.AssertNotCalled(t, "ProcessWebhookEvent", mock.Anything, mock.Anything)
	})

	t.Run("missing correlation is acknowledged", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		ev := verifiedEvent()
		ev.PaymentID = nil
		verifier.On("VerifyWebhook", mock.Anything, mock.Anything).Return(ev, nil)
		processor.On("ProcessWebhookEvent", mock.Anything, ev).
			Return(nil, fmt.Errorf("event evt_1: %w", domainErrors.ErrMissingCorrelation))

		c, rec := webhookRequest(`{}`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown payment is acknowledged", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		ev := verifiedEvent()
		verifier.On("VerifyWebhook", mock.Anything, mock.Anything).Return(ev, nil)
		processor.On("ProcessWebhookEvent", mock.Anything, ev).
			Return(nil, fmt.Errorf("apply: %w", domainErrors.ErrPaymentNotFound))

		c, rec := webhookRequest(`{}`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("storage failure answers 500 so the gateway redelivers", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		ev := verifiedEvent()
		verifier.On("VerifyWebhook", mock.Anything, mock.Anything).Return(ev, nil)
		processor.On("ProcessWebhookEvent", mock.Anything, ev).Return(nil, assert.AnError)

		c, rec := webhookRequest(`{}`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unhandled event type is acknowledged without an outcome", func(t *testing.T) {
		verifier := new(MockVerifier)
		processor := new(MockProcessor)
		handler := NewWebhookHandler(logger, verifier, processor)

		ev := verifiedEvent()
		ev.Status = nil
		verifier.On("VerifyWebhook", mock.Anything, mock.Anything).Return(ev, nil)
		processor.On("ProcessWebhookEvent", mock.Anything, ev).Return(nil, nil)

		c, rec := webhookRequest(`{}`)
		err := handler.HandleWebhook(c)

		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "outcome")
	})
}
