package adaptor

import (
	"tour-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Payment *PaymentHandler
	Admin   *AdminHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Payment: NewPaymentHandler(service.Charge, service.IPN, service.Payment, log),
		Admin:   NewAdminHandler(service.Payment, service.IPN, log),
	}
}
