package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	application "tally/contexts/governance/election-ledger/application"
	"tally/contexts/governance/election-ledger/application/commands"
	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"
)

// AuditConsumer subscribes to ledger topics and appends every event to the
// audit trail. Events are deduplicated by event id + payload hash so bus
// redeliveries never produce duplicate audit rows.
type AuditConsumer struct {
	Subscriber    ports.EventSubscriber
	Audit         ports.AuditRepository
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

// auditTopics lists every ledger event type the trail retains.
func auditTopics() []string {
	return []string{
		commands.EventVoterRegistered,
		commands.EventCandidateRegistered,
		commands.EventVotingOpened,
		commands.EventVoteCast,
		commands.EventWinnerDeclared,
		commands.EventVotingDeadlinePassed,
	}
}

// Start registers one subscription per ledger topic.
func (c AuditConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = "election-ledger-audit-cg"
	}
	for _, topic := range auditTopics() {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle appends a single consumed event to the audit trail.
func (c AuditConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	sum := sha256.Sum256(event.Data)
	payloadHash := hex.EncodeToString(sum[:])
	ttl := c.DedupTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	replayed, err := c.Dedup.ReserveEvent(ctx, event.EventID, payloadHash, now.Add(ttl))
	if err != nil {
		logger.Error("ledger audit dedup reserve failed",
			"event", "election_audit_dedup_failed",
			"module", "governance/election-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if replayed {
		logger.Debug("ledger audit event replayed",
			"event", "election_audit_replayed",
			"module", "governance/election-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
		return nil
	}

	auditID, err := c.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	if err := c.Audit.AppendAudit(ctx, entities.AuditRecord{
		AuditID:    auditID,
		EventID:    event.EventID,
		EventType:  event.EventType,
		Subject:    entities.Principal(event.PartitionKey),
		Payload:    append([]byte(nil), event.Data...),
		RecordedAt: now,
	}); err != nil {
		logger.Error("ledger audit append failed",
			"event", "election_audit_append_failed",
			"module", "governance/election-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("ledger audit event recorded",
		"event", "election_audit_recorded",
		"module", "governance/election-ledger",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
	)
	return nil
}
