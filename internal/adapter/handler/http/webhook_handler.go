package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	domainRepo "github.com/rustamrustamv/UEMS/internal/domain/repository"
)

// WebhookVerifier authenticates and normalizes raw webhook deliveries
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (*gateway.Event, error)
}

// WebhookProcessor applies a verified event through the reconciliation engine
type WebhookProcessor interface {
	ProcessWebhookEvent(ctx context.Context, ev *gateway.Event) (*domainRepo.TransitionResult, error)
}

// WebhookHandler receives gateway webhook deliveries. Input errors (bad
// signature, unparseable payload, missing correlation) are logged as
// security/integrity events and acknowledged with 200 so the gateway stops
// redelivering; only a storage failure answers 5xx, because then a redelivery
// is wanted and the idempotency index absorbs it.
type WebhookHandler struct {
	logger    *zap.Logger
	verifier  WebhookVerifier
	processor WebhookProcessor
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *zap.Logger, verifier WebhookVerifier, processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		verifier:  verifier,
		processor: processor,
	}
}

// HandleWebhook processes one webhook delivery
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	ev, err := h.verifier.VerifyWebhook(body, sig)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			h.logger.Error("Webhook signature verification failed",
				zap.String("remote_ip", c.RealIP()),
				zap.Error(err))
		case errors.Is(err, domainErrors.ErrMalformedPayload):
			h.logger.Error("Webhook payload failed to parse",
				zap.String("remote_ip", c.RealIP()),
				zap.Error(err))
		default:
			h.logger.Error("Webhook verification failed", zap.Error(err))
		}
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	h.logger.Info("Webhook event received",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type))

	result, err := h.processor.ProcessWebhookEvent(c.Request().Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrMissingCorrelation):
			h.logger.Error("Webhook event lacks payment correlation",
				zap.String("event_id", ev.ID),
				zap.String("event_type", ev.Type),
				zap.Error(err))
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		case errors.Is(err, domainErrors.ErrPaymentNotFound):
			h.logger.Error("Webhook event references unknown payment",
				zap.String("event_id", ev.ID),
				zap.Error(err))
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		default:
			// Storage failure: answer 5xx so the gateway redelivers once
			// the store recovers.
			h.logger.Error("Failed to apply webhook event",
				zap.String("event_id", ev.ID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to process event"})
		}
	}

	if result == nil {
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"outcome":  result.Outcome,
	})
}
