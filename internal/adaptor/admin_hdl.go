package adaptor

import (
	"net/http"

	"tour-booking/internal/dto/request"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminHandler struct {
	payment usecase.PaymentService
	ipn     usecase.IPNService
	log     *zap.Logger
}

func NewAdminHandler(payment usecase.PaymentService, ipn usecase.IPNService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		payment: payment,
		ipn:     ipn,
		log:     log.With(zap.String("handler", "admin")),
	}
}

// ListPayments handles GET /api/admin/payments
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaymentListRequest{
		PaginatedRequest: paginationFromQuery(r),
		Status:           query.Get("status"),
	}

	payments, err := h.payment.ListPayments(r.Context(), req)
	if err != nil {
		handleServiceError(h.log, w, err, "list payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// GetPayment handles GET /api/admin/payments/{id}
func (h *AdminHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payment.GetPaymentDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// ListIPNEvents handles GET /api/admin/ipn-events
func (h *AdminHandler) ListIPNEvents(w http.ResponseWriter, r *http.Request) {
	req := &request.IPNEventListRequest{
		PaginatedRequest: paginationFromQuery(r),
		Outcome:          r.URL.Query().Get("outcome"),
	}

	events, err := h.payment.ListIPNEvents(r.Context(), req)
	if err != nil {
		handleServiceError(h.log, w, err, "list notifications")
		return
	}

	utils.ResponseSuccess(w, "success", events)
}

// ReplayIPNEvent handles POST /api/admin/ipn-events/{id}/replay
func (h *AdminHandler) ReplayIPNEvent(w http.ResponseWriter, r *http.Request) {
	operator, _ := utils.GetOperatorFromContext(r.Context())
	eventID := chi.URLParam(r, "id")

	result, err := h.ipn.Replay(r.Context(), eventID)
	if err != nil {
		handleServiceError(h.log, w, err, "replay notification")
		return
	}

	h.log.Info("Notification replayed",
		zap.String("operator", operator),
		zap.String("event_id", eventID),
		zap.String("result", result.Result),
	)

	utils.ResponseSuccess(w, "success", result)
}

func paginationFromQuery(r *http.Request) request.PaginatedRequest {
	query := r.URL.Query()
	return request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}
