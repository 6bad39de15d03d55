package entity

import (
	"time"

	"github.com/google/uuid"
)

type IPNOutcome string

const (
	IPNOutcomeReceived IPNOutcome = "received"
	IPNOutcomeOK       IPNOutcome = "ok"
	IPNOutcomeIgnored  IPNOutcome = "ignored"
	IPNOutcomeFailed   IPNOutcome = "failed"
)

// IPNEvent is the audit row of one inbound gateway notification
type IPNEvent struct {
	ID            uuid.UUID  `db:"id"`
	HashKey       string     `db:"hash_key"`
	CorrelationID string     `db:"correlation_id"`
	RawBody       []byte     `db:"raw_body"`
	Outcome       IPNOutcome `db:"outcome"`
	Reason        string     `db:"reason"`
	ReceivedAt    time.Time  `db:"received_at"`
	ProcessedAt   *time.Time `db:"processed_at"`
}
