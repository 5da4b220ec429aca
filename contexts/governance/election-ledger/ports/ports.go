package ports

import (
	"context"
	"encoding/json"
	"time"

	"tally/contexts/governance/election-ledger/domain/entities"
)

// ElectionRepository persists the ledger: the single election state row plus
// the voter and candidate registries.
type ElectionRepository interface {
	GetState(ctx context.Context) (entities.ElectionState, error)
	SaveState(ctx context.Context, state entities.ElectionState) error

	GetVoter(ctx context.Context, principal entities.Principal) (entities.VoterRecord, bool, error)
	SaveVoter(ctx context.Context, voter entities.VoterRecord) error
	CountVoters(ctx context.Context) (int, error)

	GetCandidate(ctx context.Context, principal entities.Principal) (entities.CandidateTally, bool, error)
	SaveCandidate(ctx context.Context, candidate entities.CandidateTally) error
	ListCandidates(ctx context.Context) ([]entities.CandidateTally, error)

	// ApplyVote persists the full effect of one accepted vote (voter flag,
	// candidate tally, leader state) as a single atomic write.
	ApplyVote(
		ctx context.Context,
		voter entities.VoterRecord,
		candidate entities.CandidateTally,
		state entities.ElectionState,
	) error
}

// EventEnvelope is the canonical event shape crossing the outbox and bus.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

// EventDedupStore reserves event ids so consumers process each event once.
// replayed is true when the id was already reserved with the same payload.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type AuditRepository interface {
	AppendAudit(ctx context.Context, record entities.AuditRecord) error
	ListAudit(ctx context.Context, limit int) ([]entities.AuditRecord, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
