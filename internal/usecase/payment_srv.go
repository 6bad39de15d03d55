package usecase

import (
	"context"
	"fmt"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/request"
	"tour-booking/internal/dto/response"
	"tour-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	// Public endpoint
	GetPaymentStatus(ctx context.Context, paymentID string) (*response.PaymentStatusResponse, error)

	// Operator endpoints
	ListPayments(ctx context.Context, req *request.PaymentListRequest) (*response.PaginatedResponse[response.PaymentDetailResponse], error)
	GetPaymentDetail(ctx context.Context, paymentID string) (*response.PaymentDetailResponse, error)
	ListIPNEvents(ctx context.Context, req *request.IPNEventListRequest) (*response.PaginatedResponse[response.IPNEventResponse], error)
}

type paymentService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewPaymentService(repo *repository.Repository, log *zap.Logger) PaymentService {
	return &paymentService{
		repo: repo,
		log:  log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) GetPaymentStatus(ctx context.Context, paymentID string) (*response.PaymentStatusResponse, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	resp := response.PaymentToStatusResponse(payment)
	return &resp, nil
}

func (s *paymentService) GetPaymentDetail(ctx context.Context, paymentID string) (*response.PaymentDetailResponse, error) {
	payment, err := s.findPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	resp := response.PaymentToDetailResponse(payment)
	return &resp, nil
}

func (s *paymentService) findPayment(ctx context.Context, paymentID string) (*entity.Payment, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: payment %s", ErrInvalidID, paymentID)
	}

	payment, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if payment == nil {
		return nil, fmt.Errorf("payment %s %w", paymentID, ErrNotFound)
	}

	return payment, nil
}

func (s *paymentService) ListPayments(ctx context.Context, req *request.PaymentListRequest) (*response.PaginatedResponse[response.PaymentDetailResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	var status *entity.PaymentStatus
	if req.Status != "" {
		st := entity.PaymentStatus(req.Status)
		status = &st
	}

	limit := req.Limit()
	offset := req.Offset()

	payments, err := s.repo.Payment.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	total, err := s.repo.Payment.Count(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("count payments: %w", err)
	}

	data := make([]response.PaymentDetailResponse, len(payments))
	for i, p := range payments {
		data[i] = response.PaymentToDetailResponse(p)
	}

	return response.NewPaginatedResponse(data, req.Page, limit, total), nil
}

func (s *paymentService) ListIPNEvents(ctx context.Context, req *request.IPNEventListRequest) (*response.PaginatedResponse[response.IPNEventResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationErrors(errs))
	}

	var outcome *entity.IPNOutcome
	if req.Outcome != "" {
		o := entity.IPNOutcome(req.Outcome)
		outcome = &o
	}

	limit := req.Limit()
	offset := req.Offset()

	events, err := s.repo.IPNEvent.List(ctx, outcome, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	total, err := s.repo.IPNEvent.Count(ctx, outcome)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	data := make([]response.IPNEventResponse, len(events))
	for i, e := range events {
		data[i] = response.IPNEventToResponse(e)
	}

	return response.NewPaginatedResponse(data, req.Page, limit, total), nil
}
