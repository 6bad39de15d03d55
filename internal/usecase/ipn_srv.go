package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/dto/response"
	"tour-booking/internal/gateway"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the acknowledgement returned to the gateway
type Result string

const (
	ResultOK      Result = "OK"
	ResultIgnored Result = "IGNORED"
)

const dispatchTimeout = 15 * time.Second

type IPNService interface {
	// HandleNotification reconciles one raw notification body. It never
	// fails: every outcome maps to OK or IGNORED.
	HandleNotification(ctx context.Context, raw []byte) Result
	// Replay runs a logged notification through the reconciler again
	Replay(ctx context.Context, eventID string) (*response.ReplayResponse, error)
}

type ipnService struct {
	repo       *repository.Repository
	verifier   *gateway.Verifier
	orders     OrderMaterializer
	carts      CartClearer
	dispatcher ConfirmationDispatcher
	now        func() time.Time
	log        *zap.Logger
}

func NewIPNService(
	repo *repository.Repository,
	verifier *gateway.Verifier,
	orders OrderMaterializer,
	carts CartClearer,
	dispatcher ConfirmationDispatcher,
	log *zap.Logger,
) IPNService {
	return &ipnService{
		repo:       repo,
		verifier:   verifier,
		orders:     orders,
		carts:      carts,
		dispatcher: dispatcher,
		now:        time.Now,
		log:        log.With(zap.String("service", "ipn")),
	}
}

// verdict is what one reconciliation pass decided
type verdict struct {
	result        Result
	outcome       entity.IPNOutcome
	reason        string
	correlationID string
}

func okVerdict(reason, correlationID string) verdict {
	return verdict{result: ResultOK, outcome: entity.IPNOutcomeOK, reason: reason, correlationID: correlationID}
}

func ignoredVerdict(reason, correlationID string) verdict {
	return verdict{result: ResultIgnored, outcome: entity.IPNOutcomeIgnored, reason: reason, correlationID: correlationID}
}

func failedVerdict(reason, correlationID string) verdict {
	return verdict{result: ResultIgnored, outcome: entity.IPNOutcomeFailed, reason: reason, correlationID: correlationID}
}

func (s *ipnService) HandleNotification(ctx context.Context, raw []byte) Result {
	if raw == nil {
		raw = []byte{}
	}

	event := &entity.IPNEvent{
		ID:         uuid.New(),
		RawBody:    raw,
		Outcome:    entity.IPNOutcomeReceived,
		ReceivedAt: s.now(),
	}
	if n, err := gateway.ParseNotification(raw); err == nil {
		event.HashKey = n.HashKey
	}

	logged := true
	if err := s.repo.IPNEvent.Create(ctx, event); err != nil {
		logged = false
	}

	v := s.reconcile(ctx, raw)

	if logged {
		s.finish(ctx, event.ID, v)
	}

	return v.result
}

func (s *ipnService) Replay(ctx context.Context, eventID string) (*response.ReplayResponse, error) {
	id, err := uuid.Parse(eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: notification %s", ErrInvalidID, eventID)
	}

	event, err := s.repo.IPNEvent.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find notification: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("notification %s %w", eventID, ErrNotFound)
	}

	s.log.Info("Replaying notification", zap.String("event_id", eventID))

	v := s.reconcile(ctx, event.RawBody)
	s.finish(ctx, event.ID, v)

	return &response.ReplayResponse{EventID: eventID, Result: string(v.result)}, nil
}

func (s *ipnService) finish(ctx context.Context, id uuid.UUID, v verdict) {
	// Logged by the repository; the acknowledgement does not depend on it
	_ = s.repo.IPNEvent.Finish(ctx, id, v.correlationID, v.outcome, v.reason, s.now())
}

func (s *ipnService) reconcile(ctx context.Context, raw []byte) verdict {
	n, err := gateway.ParseNotification(raw)
	if err != nil {
		s.log.Warn("Unreadable notification", zap.Error(err), zap.Int("bytes", len(raw)))
		return ignoredVerdict(err.Error(), "")
	}

	answer, err := s.verifier.Verify(n)
	if err != nil {
		s.log.Warn("Notification failed verification",
			zap.Error(err),
			zap.String("hash_key", n.HashKey),
		)
		if errors.Is(err, gateway.ErrMalformedAnswer) {
			return ignoredVerdict("malformed answer", "")
		}
		return ignoredVerdict("signature rejected", "")
	}

	correlationID := answer.CorrelationID()

	if !answer.IsPaid() {
		s.log.Info("Notification is not a payment success",
			zap.String("order_status", answer.OrderStatus),
			zap.String("correlation_id", correlationID),
		)
		return ignoredVerdict("order status "+answer.OrderStatus, correlationID)
	}

	paymentID, err := uuid.Parse(correlationID)
	if err != nil {
		s.log.Warn("Notification correlation id is not ours", zap.String("correlation_id", correlationID))
		return ignoredVerdict("unknown correlation id", correlationID)
	}

	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return failedVerdict("payment lookup failed", correlationID)
	}
	if payment == nil {
		s.log.Warn("Notification for unknown payment", zap.String("correlation_id", correlationID))
		return ignoredVerdict("unknown payment", correlationID)
	}

	if payment.IsPaid() {
		s.log.Info("Duplicate notification for settled payment", zap.String("payment_id", payment.ID.String()))
		return okVerdict("already paid", correlationID)
	}
	if !payment.IsPending() {
		s.log.Warn("Notification for closed payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return ignoredVerdict("payment is "+string(payment.Status), correlationID)
	}

	if d := answer.OrderDetails; d.OrderTotalAmount != payment.AmountCents || !strings.EqualFold(d.OrderCurrency, payment.Currency) {
		s.log.Warn("Notification amount does not match payment",
			zap.String("payment_id", payment.ID.String()),
			zap.Int64("expected_cents", payment.AmountCents),
			zap.Int64("notified_cents", d.OrderTotalAmount),
			zap.String("expected_currency", payment.Currency),
			zap.String("notified_currency", d.OrderCurrency),
		)
		return ignoredVerdict("amount mismatch", correlationID)
	}

	won, err := s.settle(ctx, payment, answer, []byte(n.Answer))
	if err != nil {
		s.log.Error("Settlement rolled back",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		return failedVerdict("settlement failed", correlationID)
	}
	if !won {
		s.log.Info("Payment settled by a concurrent notification", zap.String("payment_id", payment.ID.String()))
		return okVerdict("already paid", correlationID)
	}

	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := s.dispatcher.DispatchPayment(dispatchCtx, payment.ID); err != nil {
		s.log.Warn("Confirmation not delivered yet", zap.Error(err), zap.String("payment_id", payment.ID.String()))
	}

	return okVerdict("settled", correlationID)
}

// settle flips the payment to PAID and runs every side effect in one
// transaction. It reports false when another notification got there first.
func (s *ipnService) settle(ctx context.Context, payment *entity.Payment, answer *gateway.Answer, rawAnswer []byte) (bool, error) {
	orderID := uuid.New()
	paidAt := s.now()
	won := false

	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		won, err = s.repo.Payment.MarkPaid(ctx, entity.Settlement{
			PaymentID:       payment.ID,
			OrderID:         orderID,
			GatewayChargeID: answer.ChargeID(),
			ResultPayload:   rawAnswer,
			PaidAt:          paidAt,
		})
		if err != nil || !won {
			return err
		}

		order, err := s.orders.CreateOrder(ctx, orderID, payment.ID, payment.OrderDraft, true)
		if err != nil {
			return err
		}

		draft := payment.OrderDraft
		if !draft.IsGuest() {
			err = s.carts.ClearOpenCartByOwner(ctx, *draft.UserID)
		} else {
			err = s.carts.ClearOpenCartBySession(ctx, draft.SessionID)
		}
		if err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return s.repo.Outbox.Enqueue(ctx, &entity.OutboxMessage{
			Base:          entity.NewBase(paidAt),
			PaymentID:     payment.ID,
			Payload:       entity.NewConfirmation(order),
			Status:        entity.OutboxStatusPending,
			NextAttemptAt: paidAt,
		})
	})
	if err != nil {
		return false, err
	}

	if won {
		s.log.Info("Payment settled",
			zap.String("payment_id", payment.ID.String()),
			zap.String("order_id", orderID.String()),
			zap.String("gateway_charge_id", answer.ChargeID()),
		)
	}

	return won, nil
}
