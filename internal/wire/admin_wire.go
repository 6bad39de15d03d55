package wire

import (
	"tour-booking/internal/adaptor"
	"tour-booking/pkg/middleware"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(r chi.Router, adminHandler *adaptor.AdminHandler, config *utils.Config, log *zap.Logger) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Operator(config.Admin, log))

		// Orphaned PENDING drafts and settled payments
		r.Get("/payments", adminHandler.ListPayments)
		r.Get("/payments/{id}", adminHandler.GetPayment)

		// Notification log and replay
		r.Get("/ipn-events", adminHandler.ListIPNEvents)
		r.Post("/ipn-events/{id}/replay", adminHandler.ReplayIPNEvent)
	})
}
