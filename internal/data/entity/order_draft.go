package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidDraft = errors.New("invalid order draft")

// OrderDraft is the immutable snapshot of what will be materialized once the
// payment settles. Prices are frozen at checkout time.
type OrderDraft struct {
	UserID         *uuid.UUID  `json:"user_id,omitempty"`
	SessionID      string      `json:"session_id,omitempty"`
	CustomerName   string      `json:"customer_name"`
	CustomerEmail  string      `json:"customer_email"`
	CustomerPhone  string      `json:"customer_phone,omitempty"`
	Items          []DraftItem `json:"items"`
	SubtotalCents  int64       `json:"subtotal_cents"`
	DiscountCents  int64       `json:"discount_cents"`
	TotalCents     int64       `json:"total_cents"`
	Currency       string      `json:"currency"`
	AppliedOfferID *string     `json:"applied_offer_id,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

type DraftItem struct {
	TourID          string    `json:"tour_id"`
	TourName        string    `json:"tour_name,omitempty"`
	TravelDate      time.Time `json:"travel_date"`
	Adults          int       `json:"adults"`
	Children        int       `json:"children"`
	Infants         int       `json:"infants"`
	UnitPriceCents  int64     `json:"unit_price_cents"`
	TotalPriceCents int64     `json:"total_price_cents"`
	AppliedOfferID  *string   `json:"applied_offer_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

func (i DraftItem) Travellers() int {
	return i.Adults + i.Children + i.Infants
}

// IsGuest reports whether the purchaser has no account
func (d OrderDraft) IsGuest() bool {
	return d.UserID == nil
}

// OwnerKey identifies the purchaser: the authenticated user when present,
// otherwise the anonymous session token.
func (d OrderDraft) OwnerKey() string {
	if d.UserID != nil {
		return "user:" + d.UserID.String()
	}
	return "session:" + d.SessionID
}

// Validate checks the draft is internally consistent
func (d OrderDraft) Validate() error {
	if d.UserID == nil && strings.TrimSpace(d.SessionID) == "" {
		return fmt.Errorf("%w: owner user or session token is required", ErrInvalidDraft)
	}
	if d.UserID != nil && *d.UserID == uuid.Nil {
		return fmt.Errorf("%w: owner user id is empty", ErrInvalidDraft)
	}
	if len(d.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidDraft)
	}
	if len(d.Currency) != 3 {
		return fmt.Errorf("%w: currency %q is not a 3-letter code", ErrInvalidDraft, d.Currency)
	}

	var sum int64
	for idx, item := range d.Items {
		if item.Travellers() < 1 {
			return fmt.Errorf("%w: item %d has no travellers", ErrInvalidDraft, idx)
		}
		if item.TotalPriceCents <= 0 || item.UnitPriceCents < 0 {
			return fmt.Errorf("%w: item %d has a non-positive price", ErrInvalidDraft, idx)
		}
		sum += item.TotalPriceCents
	}

	if sum != d.SubtotalCents {
		return fmt.Errorf("%w: items add up to %d, subtotal is %d", ErrInvalidDraft, sum, d.SubtotalCents)
	}
	if d.DiscountCents < 0 || d.DiscountCents > d.SubtotalCents {
		return fmt.Errorf("%w: discount %d out of range", ErrInvalidDraft, d.DiscountCents)
	}
	if d.SubtotalCents-d.DiscountCents != d.TotalCents {
		return fmt.Errorf("%w: total %d does not equal subtotal minus discount", ErrInvalidDraft, d.TotalCents)
	}
	if d.TotalCents <= 0 {
		return fmt.Errorf("%w: total must be positive", ErrInvalidDraft)
	}

	return nil
}

// Fingerprint is a stable digest of the draft content. Two checkouts of the
// same cart by the same owner produce the same fingerprint.
func (d OrderDraft) Fingerprint() (string, error) {
	canonical, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
