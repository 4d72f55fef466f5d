package stripe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
)

// metadataPaymentKey is the correlation metadata key set at intent-creation
// time and read back from webhook events
const metadataPaymentKey = "payment_id"

// eventStatuses is the fixed event-type to target-status mapping. Event
// types absent from this table are acknowledged at the transport level but
// produce no transition.
var eventStatuses = map[stripego.EventType]model.PaymentStatus{
	stripego.EventTypePaymentIntentProcessing:    model.PaymentStatusProcessing,
	stripego.EventTypePaymentIntentSucceeded:     model.PaymentStatusSucceeded,
	stripego.EventTypePaymentIntentPaymentFailed: model.PaymentStatusFailed,
	stripego.EventTypeChargeRefunded:             model.PaymentStatusRefunded,
}

// refundReasons are the reason codes Stripe accepts; anything else is sent as
// requested_by_customer and kept verbatim in the local ledger note only
var refundReasons = map[string]struct{}{
	string(stripego.RefundReasonDuplicate):           {},
	string(stripego.RefundReasonFraudulent):          {},
	string(stripego.RefundReasonRequestedByCustomer): {},
}

// StripeGateway implements the gateway.Gateway interface for Stripe
type StripeGateway struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeGateway creates a new Stripe gateway client
func NewStripeGateway(secretKey, webhookSecret string, logger *zap.Logger) *StripeGateway {
	stripego.Key = secretKey
	return &StripeGateway{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Name returns the gateway name
func (g *StripeGateway) Name() string {
	return "stripe"
}

// CreateIntent creates a Stripe PaymentIntent carrying the local payment id
// in its metadata
func (g *StripeGateway) CreateIntent(ctx context.Context, req *gateway.CreateIntentRequest) (*gateway.CreateIntentResponse, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(req.AmountMinor),
		Currency: stripego.String(req.Currency),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripego.String(req.Description)
	}
	params.AddMetadata(metadataPaymentKey, req.PaymentID.String())
	for k, v := range req.Metadata {
		if k != metadataPaymentKey {
			params.AddMetadata(k, v)
		}
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, wrapStripeError("payment intent creation failed", err)
	}

	g.logger.Info("Stripe payment intent created",
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", req.AmountMinor))

	resp := &gateway.CreateIntentResponse{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	}
	if intent.Customer != nil {
		resp.CustomerID = intent.Customer.ID
	}
	return resp, nil
}

// CreateRefund refunds the given payment intent
func (g *StripeGateway) CreateRefund(ctx context.Context, req *gateway.CreateRefundRequest) (*gateway.CreateRefundResponse, error) {
	reason := string(stripego.RefundReasonRequestedByCustomer)
	if _, ok := refundReasons[req.Reason]; ok {
		reason = req.Reason
	}

	params := &stripego.RefundParams{
		PaymentIntent: stripego.String(req.IntentID),
		Reason:        stripego.String(reason),
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		return nil, wrapStripeError("refund creation failed", err)
	}

	g.logger.Info("Stripe refund created",
		zap.String("intent_id", req.IntentID),
		zap.String("refund_id", ref.ID))

	return &gateway.CreateRefundResponse{
		RefundID: ref.ID,
		Status:   string(ref.Status),
	}, nil
}

// VerifyWebhook authenticates the delivery against the shared secret and
// normalizes it. Signature and parse failures short-circuit before the
// reconciliation engine; unrecognized event types come back with a nil
// target status.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (*gateway.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}

	normalized := &gateway.Event{
		ID:        ev.ID,
		Type:      string(ev.Type),
		Raw:       model.JSONB(ev.Data.Object),
		CreatedAt: time.Unix(ev.Created, 0),
	}

	if status, ok := eventStatuses[ev.Type]; ok {
		s := status
		normalized.Status = &s
	}

	if id, ok := paymentIDFromObject(ev.Data.Object); ok {
		normalized.PaymentID = &id
	}
	normalized.IntentID = intentIDFromObject(ev.Data.Object)

	return normalized, nil
}

func paymentIDFromObject(object map[string]interface{}) (uuid.UUID, bool) {
	metadata, ok := object["metadata"].(map[string]interface{})
	if !ok {
		return uuid.Nil, false
	}
	raw, ok := metadata[metadataPaymentKey].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// intentIDFromObject pulls the payment intent id out of the event object.
// Charge objects reference their intent through the payment_intent field;
// payment intent objects are their own reference. Stripe does not copy intent
// metadata onto charges for out-of-band refunds, so this is the correlation
// fallback when paymentIDFromObject finds nothing.
func intentIDFromObject(object map[string]interface{}) string {
	if id, ok := object["payment_intent"].(string); ok {
		return id
	}
	if kind, ok := object["object"].(string); ok && kind == "payment_intent" {
		if id, ok := object["id"].(string); ok {
			return id
		}
	}
	return ""
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}

func wrapStripeError(message string, err error) error {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		return &gateway.GatewayError{
			Code:    string(stripeErr.Code),
			Message: message,
			Details: stripeErr.Msg,
		}
	}
	return &gateway.GatewayError{
		Code:    "API_ERROR",
		Message: message,
		Details: err.Error(),
	}
}
