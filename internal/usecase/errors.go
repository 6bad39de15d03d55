package usecase

import (
	"errors"

	"tour-booking/internal/data/entity"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrInvalidID  = errors.New("invalid id")
	ErrNotFound   = errors.New("not found")

	// ErrInvalidDraft is returned when the checkout totals do not add up
	ErrInvalidDraft = entity.ErrInvalidDraft

	// ErrGatewayRejected and ErrGatewayUnavailable leave the payment PENDING;
	// the accompanying response still carries its id.
	ErrGatewayRejected    = errors.New("payment gateway rejected the charge")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
