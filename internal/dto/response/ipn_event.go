package response

import (
	"time"

	"tour-booking/internal/data/entity"
)

type IPNEventResponse struct {
	ID            string            `json:"id"`
	HashKey       string            `json:"hash_key,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Outcome       entity.IPNOutcome `json:"outcome"`
	Reason        string            `json:"reason,omitempty"`
	RawBody       string            `json:"raw_body"`
	ReceivedAt    time.Time         `json:"received_at"`
	ProcessedAt   *time.Time        `json:"processed_at,omitempty"`
}

type ReplayResponse struct {
	EventID string `json:"event_id"`
	Result  string `json:"result"`
}

func IPNEventToResponse(e *entity.IPNEvent) IPNEventResponse {
	return IPNEventResponse{
		ID:            e.ID.String(),
		HashKey:       e.HashKey,
		CorrelationID: e.CorrelationID,
		Outcome:       e.Outcome,
		Reason:        e.Reason,
		RawBody:       string(e.RawBody),
		ReceivedAt:    e.ReceivedAt,
		ProcessedAt:   e.ProcessedAt,
	}
}
