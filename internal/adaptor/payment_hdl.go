package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tour-booking/internal/dto/request"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxNotificationBytes caps the IPN body read from the gateway
const MaxNotificationBytes = 64 << 10

type PaymentHandler struct {
	charge  usecase.ChargeService
	ipn     usecase.IPNService
	payment usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(charge usecase.ChargeService, ipn usecase.IPNService, payment usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		charge:  charge,
		ipn:     ipn,
		payment: payment,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreateFormToken handles POST /api/payments/form-token
func (h *PaymentHandler) CreateFormToken(w http.ResponseWriter, r *http.Request) {
	var req request.CreateChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	var userID *uuid.UUID
	if id, ok := utils.GetUserIDFromContext(r.Context()); ok {
		userID = &id
	}

	charge, err := h.charge.OpenCharge(r.Context(), &req, userID)
	switch {
	case err == nil:
		utils.ResponseCreated(w, "success", charge)

	case errors.Is(err, usecase.ErrGatewayRejected), errors.Is(err, usecase.ErrGatewayUnavailable):
		h.log.Warn("Charge initiation failed at gateway", zap.Error(err))
		utils.ResponseBadGateway(w, "Payment gateway could not start the charge", charge)

	default:
		handleServiceError(h.log, w, err, "create form token")
	}
}

// HandleIPN handles POST /api/payments/ipn. The gateway always gets 200.
func (h *PaymentHandler) HandleIPN(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxNotificationBytes))
	if err != nil {
		h.log.Warn("Notification body rejected", zap.Error(err))
		utils.ResponseAck(w, string(usecase.ResultIgnored))
		return
	}

	result := h.ipn.HandleNotification(r.Context(), body)
	utils.ResponseAck(w, string(result))
}

// GetPaymentStatus handles GET /api/payments/{id}
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "id")

	payment, err := h.payment.GetPaymentStatus(r.Context(), paymentID)
	if err != nil {
		handleServiceError(h.log, w, err, "get payment status")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}
