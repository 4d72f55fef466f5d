package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainErrors "github.com/rustamrustamv/UEMS/internal/domain/errors"
	"github.com/rustamrustamv/UEMS/internal/domain/gateway"
	"github.com/rustamrustamv/UEMS/internal/domain/model"
	"github.com/rustamrustamv/UEMS/internal/middleware/auth"
	"github.com/rustamrustamv/UEMS/internal/usecase"
)

// PaymentService is the slice of the payment usecase the handler consumes
type PaymentService interface {
	CreatePayment(ctx context.Context, input usecase.CreatePaymentInput) (*usecase.CreatePaymentResult, error)
	RequestRefund(ctx context.Context, paymentID uuid.UUID, actorID, reason string) (*usecase.RefundResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListPayments(ctx context.Context, userID *uuid.UUID, limit, offset int) ([]*model.Payment, error)
	GetHistory(ctx context.Context, paymentID uuid.UUID) ([]*model.PaymentHistory, error)
}

// PaymentHandler exposes the payments API. Students see their own payments;
// admins see all and may initiate refunds.
type PaymentHandler struct {
	service  PaymentService
	logger   *zap.Logger
	validate *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		logger:   logger,
		validate: validator.New(),
	}
}

// CreatePaymentRequest is the payment creation request body
type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
	PaymentType string          `json:"payment_type" validate:"required"`
	Semester    *string         `json:"semester,omitempty"`
	Year        *int            `json:"year,omitempty"`
	Description *string         `json:"description,omitempty"`
	Metadata    model.JSONB     `json:"metadata,omitempty"`
}

// RefundRequest is the refund request body
type RefundRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CreatePayment handles POST /payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	userID, err := uuid.Parse(user.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid user identity"})
	}

	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	result, err := h.service.CreatePayment(c.Request().Context(), usecase.CreatePaymentInput{
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaymentType: model.PaymentType(req.PaymentType),
		Semester:    req.Semester,
		Year:        req.Year,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, result)
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid payment id"})
	}

	payment, err := h.service.GetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return h.writeError(c, err)
	}

	if user.Role != auth.RoleAdmin && payment.UserID.String() != user.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}

	return c.JSON(http.StatusOK, payment)
}

// ListPayments handles GET /payments
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	limit := intQueryParam(c, "limit", 20)
	offset := intQueryParam(c, "offset", 0)

	var scope *uuid.UUID
	if user.Role == auth.RoleAdmin {
		if filter := c.QueryParam("user_id"); filter != "" {
			id, err := uuid.Parse(filter)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user_id filter"})
			}
			scope = &id
		}
	} else {
		id, err := uuid.Parse(user.UserID)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid user identity"})
		}
		scope = &id
	}

	payments, err := h.service.ListPayments(c.Request().Context(), scope, limit, offset)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, payments)
}

// GetHistory handles GET /payments/:id/history
func (h *PaymentHandler) GetHistory(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid payment id"})
	}

	payment, err := h.service.GetPayment(c.Request().Context(), paymentID)
	if err != nil {
		return h.writeError(c, err)
	}
	if user.Role != auth.RoleAdmin && payment.UserID.String() != user.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Access denied"})
	}

	entries, err := h.service.GetHistory(c.Request().Context(), paymentID)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, entries)
}

// RequestRefund handles POST /payments/:id/refund (admin only; the route is
// additionally gated by auth.RequireRole)
func (h *PaymentHandler) RequestRefund(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid payment id"})
	}

	var req RefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	result, err := h.service.RequestRefund(c.Request().Context(), paymentID, user.UserID, req.Reason)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *PaymentHandler) writeError(c echo.Context, err error) error {
	var illegal *domainErrors.IllegalTransitionError
	var gwErr *gateway.GatewayError

	switch {
	case errors.Is(err, domainErrors.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Payment not found"})
	case errors.As(err, &illegal):
		return c.JSON(http.StatusConflict, echo.Map{"error": illegal.Error()})
	case errors.As(err, &gwErr):
		h.logger.Error("Gateway error", zap.String("code", gwErr.Code), zap.Error(gwErr))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Payment gateway error"})
	default:
		h.logger.Error("Payment request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
