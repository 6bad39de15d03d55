//go:build integration

package repository_test

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"tour-booking/internal/data/entity"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/gateway"
	"tour-booking/internal/mail"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var testDB database.PgxIface

func TestMain(m *testing.M) {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tours"),
		postgres.WithUsername("tours"),
		postgres.WithPassword("tours"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	testDB, err = database.Connect(ctx, connStr, 20)
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(ctx, testDB); err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	_ = testcontainers.TerminateContainer(ctr)
	os.Exit(code)
}

func newRepo(t *testing.T) *repository.Repository {
	t.Helper()
	return repository.NewRepository(testDB, zaptest.NewLogger(t))
}

func draftFor(session string) entity.OrderDraft {
	return entity.OrderDraft{
		SessionID:     session,
		CustomerName:  "Ana Quispe",
		CustomerEmail: "ana@example.com",
		Items: []entity.DraftItem{{
			TourID:          "machu-picchu-1d",
			TourName:        "Machu Picchu Full Day",
			TravelDate:      time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
			Adults:          2,
			UnitPriceCents:  7500,
			TotalPriceCents: 15000,
		}},
		SubtotalCents: 15000,
		TotalCents:    15000,
		Currency:      "PEN",
	}
}

func openPayment(t *testing.T, repo *repository.Repository, draft entity.OrderDraft) *entity.Payment {
	t.Helper()
	p, err := entity.NewPendingPayment(draft, time.Now())
	require.NoError(t, err)
	stored, _, err := repo.Payment.CreateOrReuse(context.Background(), p)
	require.NoError(t, err)
	return stored
}

func TestPaymentRepository_CreateOrReuse(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	session := "sess-" + uuid.NewString()

	first, err := entity.NewPendingPayment(draftFor(session), time.Now())
	require.NoError(t, err)
	stored, reused, err := repo.Payment.CreateOrReuse(ctx, first)
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, first.ID, stored.ID)

	second, err := entity.NewPendingPayment(draftFor(session), time.Now())
	require.NoError(t, err)
	again, reused, err := repo.Payment.CreateOrReuse(ctx, second)
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, draftFor(session).Items[0].TravelDate, again.OrderDraft.Items[0].TravelDate)

	require.NoError(t, repo.Payment.SetFormToken(ctx, first.ID, "tok"))
	found, err := repo.Payment.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, found.FormToken)
	assert.Equal(t, "tok", *found.FormToken)

	missing, err := repo.Payment.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func signedNotification(t *testing.T, secret string, p *entity.Payment) []byte {
	t.Helper()
	raw, err := json.Marshal(gateway.Answer{
		ShopID:      "12345678",
		OrderCycle:  "CLOSED",
		OrderStatus: gateway.OrderStatusPaid,
		OrderDetails: &gateway.OrderDetails{
			OrderTotalAmount: p.AmountCents,
			OrderCurrency:    p.Currency,
			OrderID:          p.ID.String(),
		},
		Transactions: []gateway.Transaction{{UUID: uuid.NewString(), Amount: p.AmountCents, Currency: p.Currency, Status: "PAID"}},
	})
	require.NoError(t, err)

	key := gateway.SigningKey{Secret: []byte(secret), Hash: sha256.New}
	form := url.Values{}
	form.Set(gateway.FieldAnswer, string(raw))
	form.Set(gateway.FieldHash, gateway.SignHex(key, string(raw)))
	form.Set(gateway.FieldHashKey, "sha256_hmac")
	return []byte(form.Encode())
}

func TestSettlement_ConcurrentNotifications(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))

	session := "sess-" + uuid.NewString()
	cartID := uuid.New()
	_, err := testDB.Exec(ctx, `INSERT INTO carts (id, session_id, status) VALUES ($1, $2, 'open')`, cartID, session)
	require.NoError(t, err)

	payment := openPayment(t, repo, draftFor(session))

	dispatcher := usecase.NewConfirmationDispatcher(repo.Outbox, mail.NewLogNotifier(log), usecase.DispatcherConfig{}, log)
	svc := usecase.NewIPNService(
		repo,
		gateway.NewHMACSHA256Verifier(map[string]string{"sha256_hmac": "it-secret"}),
		usecase.NewOrderMaterializer(repo.Order, log),
		usecase.NewCartClearer(repo.Cart, log),
		dispatcher,
		log,
	)

	body := signedNotification(t, "it-secret", payment)

	var wg sync.WaitGroup
	results := make([]usecase.Result, 12)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.HandleNotification(ctx, body)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, usecase.ResultOK, r)
	}

	stored, err := repo.Payment.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.LinkedOrderID)

	order, err := repo.Order.FindByPaymentID(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, *stored.LinkedOrderID, order.ID)
	assert.Equal(t, session, order.SessionID)
	assert.Equal(t, entity.OrderPaymentPaid, order.PaymentStatus)

	var orders int
	require.NoError(t, testDB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE payment_id = $1`, payment.ID).Scan(&orders))
	assert.Equal(t, 1, orders)

	var cartStatus string
	require.NoError(t, testDB.QueryRow(ctx, `SELECT status FROM carts WHERE id = $1`, cartID).Scan(&cartStatus))
	assert.Equal(t, "converted", cartStatus)

	msg, err := repo.Outbox.FindByPaymentID(ctx, payment.ID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, entity.OutboxStatusSent, msg.Status)
	assert.Equal(t, 1, msg.Attempts)
}

func TestOutboxRepository_ClaimIsExclusive(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	payment := openPayment(t, repo, draftFor("sess-"+uuid.NewString()))

	now := time.Now()
	require.NoError(t, repo.Outbox.Enqueue(ctx, &entity.OutboxMessage{
		Base:          entity.NewBase(now),
		PaymentID:     payment.ID,
		Payload:       entity.Confirmation{To: "ana@example.com", OrderID: uuid.NewString()},
		Status:        entity.OutboxStatusPending,
		NextAttemptAt: now,
	}))

	var (
		mu      sync.Mutex
		claimed int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := repo.Outbox.Claim(ctx, payment.ID, time.Now().Add(time.Minute))
			assert.NoError(t, err)
			if msg != nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claimed)

	msg, err := repo.Outbox.FindByPaymentID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OutboxStatusSending, msg.Status)
	assert.Equal(t, 1, msg.Attempts)

	// an expired lease makes the message claimable again
	require.NoError(t, repo.Outbox.MarkRetry(ctx, msg.ID, time.Now().Add(-time.Second), "smtp timeout"))
	due, err := repo.Outbox.ClaimDue(ctx, 10, time.Now().Add(time.Minute))
	require.NoError(t, err)
	var found bool
	for _, m := range due {
		if m.PaymentID == payment.ID {
			found = true
			assert.Equal(t, 2, m.Attempts)
		}
	}
	assert.True(t, found)
}
