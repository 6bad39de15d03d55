package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/gateway"

	"github.com/google/uuid"
)

type fakeCart struct {
	UserID    *uuid.UUID
	SessionID string
	Status    string
}

// memStore is an in-memory stand-in for the database. Transactions are
// serialized and rolled back by restoring a snapshot.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	payments map[uuid.UUID]entity.Payment
	orders   map[uuid.UUID]entity.Order
	carts    map[uuid.UUID]fakeCart
	events   map[uuid.UUID]entity.IPNEvent
	eventSeq []uuid.UUID
	outbox   map[uuid.UUID]entity.OutboxMessage

	// failures maps an operation name to the error it should return
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		payments: make(map[uuid.UUID]entity.Payment),
		orders:   make(map[uuid.UUID]entity.Order),
		carts:    make(map[uuid.UUID]fakeCart),
		events:   make(map[uuid.UUID]entity.IPNEvent),
		outbox:   make(map[uuid.UUID]entity.OutboxMessage),
		failures: make(map[string]error),
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Payment:  &memPaymentRepo{s},
		Order:    &memOrderRepo{s},
		Cart:     &memCartRepo{s},
		IPNEvent: &memEventRepo{s},
		Outbox:   &memOutboxRepo{s},
		Tx:       &memTransactor{s},
	}
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *memStore) clearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]error)
}

// must be called with mu held
func (s *memStore) failure(op string) error {
	return s.failures[op]
}

func (s *memStore) addCart(userID *uuid.UUID, sessionID string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.carts[id] = fakeCart{UserID: userID, SessionID: sessionID, Status: "open"}
	return id
}

func (s *memStore) cart(id uuid.UUID) fakeCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.carts[id]
}

func (s *memStore) payment(id uuid.UUID) entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

func (s *memStore) setPaymentStatus(id uuid.UUID, status entity.PaymentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.payments[id]
	p.Status = status
	s.payments[id] = p
}

func (s *memStore) ordersFor(paymentID uuid.UUID) []entity.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Order
	for _, o := range s.orders {
		if o.PaymentID == paymentID {
			out = append(out, o)
		}
	}
	return out
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) outboxFor(paymentID uuid.UUID) (entity.OutboxMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.outbox {
		if m.PaymentID == paymentID {
			return m, true
		}
	}
	return entity.OutboxMessage{}, false
}

func (s *memStore) outboxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

// eventList returns the logged notifications in arrival order
func (s *memStore) eventList() []entity.IPNEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.IPNEvent, 0, len(s.eventSeq))
	for _, id := range s.eventSeq {
		out = append(out, s.events[id])
	}
	return out
}

type memSnapshot struct {
	payments map[uuid.UUID]entity.Payment
	orders   map[uuid.UUID]entity.Order
	carts    map[uuid.UUID]fakeCart
	outbox   map[uuid.UUID]entity.OutboxMessage
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memTransactor struct{ s *memStore }

func (t *memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	snap := memSnapshot{
		payments: copyMap(t.s.payments),
		orders:   copyMap(t.s.orders),
		carts:    copyMap(t.s.carts),
		outbox:   copyMap(t.s.outbox),
	}
	t.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.s.mu.Lock()
		t.s.payments = snap.payments
		t.s.orders = snap.orders
		t.s.carts = snap.carts
		t.s.outbox = snap.outbox
		t.s.mu.Unlock()
		return err
	}
	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) CreateOrReuse(ctx context.Context, p *entity.Payment) (*entity.Payment, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("payment.create"); err != nil {
		return nil, false, err
	}
	for _, existing := range r.s.payments {
		if existing.Status == entity.PaymentStatusPending &&
			existing.OwnerKey == p.OwnerKey &&
			existing.DraftFingerprint == p.DraftFingerprint {
			cp := existing
			return &cp, true, nil
		}
	}
	r.s.payments[p.ID] = *p
	cp := *p
	return &cp, false, nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("payment.find"); err != nil {
		return nil, err
	}
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memPaymentRepo) SetFormToken(ctx context.Context, id uuid.UUID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return errors.New("payment not found")
	}
	p.FormToken = &token
	r.s.payments[id] = p
	return nil
}

func (r *memPaymentRepo) MarkPaid(ctx context.Context, st entity.Settlement) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("payment.mark_paid"); err != nil {
		return false, err
	}
	p, ok := r.s.payments[st.PaymentID]
	if !ok || p.Status != entity.PaymentStatusPending {
		return false, nil
	}
	p.Status = entity.PaymentStatusPaid
	orderID := st.OrderID
	p.LinkedOrderID = &orderID
	if st.GatewayChargeID != "" {
		chargeID := st.GatewayChargeID
		p.GatewayChargeID = &chargeID
	}
	p.ResultPayload = st.ResultPayload
	paidAt := st.PaidAt
	p.PaidAt = &paidAt
	p.UpdatedAt = paidAt
	r.s.payments[p.ID] = p
	return true, nil
}

func (r *memPaymentRepo) filtered(status *entity.PaymentStatus) []entity.Payment {
	var out []entity.Payment
	for _, p := range r.s.payments {
		if status == nil || p.Status == *status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memPaymentRepo) List(ctx context.Context, status *entity.PaymentStatus, limit, offset int) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.filtered(status)
	var out []*entity.Payment
	for i := offset; i < len(all) && i < offset+limit; i++ {
		p := all[i]
		out = append(out, &p)
	}
	return out, nil
}

func (r *memPaymentRepo) Count(ctx context.Context, status *entity.PaymentStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filtered(status))), nil
}

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("order.create"); err != nil {
		return err
	}
	for _, o := range r.s.orders {
		if o.PaymentID == order.PaymentID {
			return errors.New("duplicate key value violates unique constraint orders_payment_id_key")
		}
	}
	r.s.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *memOrderRepo) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.PaymentID == paymentID {
			return &o, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) ExistsByConfirmationCode(ctx context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.ConfirmationCode == code {
			return true, nil
		}
	}
	return false, nil
}

type memCartRepo struct{ s *memStore }

func (r *memCartRepo) CloseOpenByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("cart.close"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.s.carts {
		if c.UserID != nil && *c.UserID == userID && c.Status == "open" {
			c.Status = "converted"
			r.s.carts[id] = c
			n++
		}
	}
	return n, nil
}

func (r *memCartRepo) CloseOpenBySession(ctx context.Context, sessionID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("cart.close"); err != nil {
		return 0, err
	}
	var n int64
	for id, c := range r.s.carts {
		if c.UserID == nil && c.SessionID == sessionID && c.Status == "open" {
			c.Status = "converted"
			r.s.carts[id] = c
			n++
		}
	}
	return n, nil
}

type memEventRepo struct{ s *memStore }

func (r *memEventRepo) Create(ctx context.Context, event *entity.IPNEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("event.create"); err != nil {
		return err
	}
	r.s.events[event.ID] = *event
	r.s.eventSeq = append(r.s.eventSeq, event.ID)
	return nil
}

func (r *memEventRepo) Finish(ctx context.Context, id uuid.UUID, correlationID string, outcome entity.IPNOutcome, reason string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil
	}
	if correlationID != "" {
		e.CorrelationID = correlationID
	}
	e.Outcome = outcome
	e.Reason = reason
	e.ProcessedAt = &at
	r.s.events[id] = e
	return nil
}

func (r *memEventRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.IPNEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *memEventRepo) filtered(outcome *entity.IPNOutcome) []entity.IPNEvent {
	var out []entity.IPNEvent
	for _, e := range r.s.events {
		if outcome == nil || e.Outcome == *outcome {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out
}

func (r *memEventRepo) List(ctx context.Context, outcome *entity.IPNOutcome, limit, offset int) ([]*entity.IPNEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.filtered(outcome)
	var out []*entity.IPNEvent
	for i := offset; i < len(all) && i < offset+limit; i++ {
		e := all[i]
		out = append(out, &e)
	}
	return out, nil
}

func (r *memEventRepo) Count(ctx context.Context, outcome *entity.IPNOutcome) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.filtered(outcome))), nil
}

type memOutboxRepo struct{ s *memStore }

func (r *memOutboxRepo) Enqueue(ctx context.Context, msg *entity.OutboxMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("outbox.enqueue"); err != nil {
		return err
	}
	for _, m := range r.s.outbox {
		if m.PaymentID == msg.PaymentID {
			return errors.New("duplicate key value violates unique constraint notification_outbox_payment_id_key")
		}
	}
	r.s.outbox[msg.ID] = *msg
	return nil
}

func claimable(m entity.OutboxMessage, now time.Time, first bool) bool {
	switch m.Status {
	case entity.OutboxStatusPending:
		return (first && m.Attempts == 0) || !m.NextAttemptAt.After(now)
	case entity.OutboxStatusSending:
		return m.LockedUntil != nil && m.LockedUntil.Before(now)
	}
	return false
}

func (r *memOutboxRepo) claim(m entity.OutboxMessage, lockedUntil time.Time) *entity.OutboxMessage {
	m.Status = entity.OutboxStatusSending
	m.LockedUntil = &lockedUntil
	m.Attempts++
	r.s.outbox[m.ID] = m
	return &m
}

func (r *memOutboxRepo) Claim(ctx context.Context, paymentID uuid.UUID, lockedUntil time.Time) (*entity.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, m := range r.s.outbox {
		if m.PaymentID == paymentID && claimable(m, now, true) {
			return r.claim(m, lockedUntil), nil
		}
	}
	return nil, nil
}

func (r *memOutboxRepo) ClaimDue(ctx context.Context, limit int, lockedUntil time.Time) ([]*entity.OutboxMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("outbox.claim_due"); err != nil {
		return nil, err
	}
	now := time.Now()
	var out []*entity.OutboxMessage
	for _, m := range r.s.outbox {
		if len(out) >= limit {
			break
		}
		if claimable(m, now, false) {
			out = append(out, r.claim(m, lockedUntil))
		}
	}
	return out, nil
}

func (r *memOutboxRepo) update(id uuid.UUID, fn func(m *entity.OutboxMessage)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.outbox[id]
	if !ok {
		return errors.New("outbox message not found")
	}
	fn(&m)
	r.s.outbox[id] = m
	return nil
}

func (r *memOutboxRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(m *entity.OutboxMessage) {
		m.Status = entity.OutboxStatusSent
		m.SentAt = &at
		m.LockedUntil = nil
		m.LastError = nil
	})
}

func (r *memOutboxRepo) MarkRetry(ctx context.Context, id uuid.UUID, next time.Time, lastErr string) error {
	return r.update(id, func(m *entity.OutboxMessage) {
		m.Status = entity.OutboxStatusPending
		m.NextAttemptAt = next
		m.LockedUntil = nil
		m.LastError = &lastErr
	})
}

func (r *memOutboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string) error {
	return r.update(id, func(m *entity.OutboxMessage) {
		m.Status = entity.OutboxStatusFailed
		m.LockedUntil = nil
		m.LastError = &lastErr
	})
}

func (r *memOutboxRepo) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.OutboxMessage, error) {
	m, ok := r.s.outboxFor(paymentID)
	if !ok {
		return nil, nil
	}
	return &m, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []entity.Confirmation
	err  error
}

func (n *fakeNotifier) SendPaymentConfirmation(ctx context.Context, c entity.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, c)
	return nil
}

func (n *fakeNotifier) failWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *fakeNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) last() entity.Confirmation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []gateway.ChargeRequest
	token    string
	err      error
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeToken, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.ChargeToken{FormToken: g.token}, nil
}
