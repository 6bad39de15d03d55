package wire

import (
	"tour-booking/internal/adaptor"
	"tour-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, log *zap.Logger) {
	r.Route("/api/payments", func(r chi.Router) {
		// POST /api/payments/ipn - gateway callback, authenticated by signature
		r.Post("/ipn", paymentHandler.HandleIPN)

		// GET /api/payments/{id} - public status polled by the checkout page
		r.Get("/{id}", paymentHandler.GetPaymentStatus)

		// POST /api/payments/form-token - guests and signed-in users
		r.With(middleware.OptionalUser(log)).Post("/form-token", paymentHandler.CreateFormToken)
	})
}
