package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/contexts/governance/election-ledger/domain/entities"
	domainerrors "tally/contexts/governance/election-ledger/domain/errors"
	"tally/contexts/governance/election-ledger/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	// The ledger holds exactly one election; its state row has a fixed key.
	electionStateID = 1
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetState loads the election state row, seeding the initial registration
// state on first use.
func (r *Repository) GetState(ctx context.Context) (entities.ElectionState, error) {
	var row stateModel
	err := r.db.WithContext(ctx).
		Where("id = ?", electionStateID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.NewElectionState(time.Now().UTC()), nil
		}
		return entities.ElectionState{}, r.logError("election_repo_get_state_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveState(ctx context.Context, state entities.ElectionState) error {
	return r.saveStateTx(r.db.WithContext(ctx), state)
}

func (r *Repository) saveStateTx(tx *gorm.DB, state entities.ElectionState) error {
	row := stateModelFromEntity(state)
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"phase":            row.Phase,
			"voting_ends_at":   row.VotingEndsAt,
			"leader_candidate": row.LeaderCandidate,
			"leader_votes":     row.LeaderVotes,
			"updated_at":       row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("election_repo_save_state_failed", err,
			"phase", row.Phase,
		)
	}
	return nil
}

func (r *Repository) GetVoter(ctx context.Context, principal entities.Principal) (entities.VoterRecord, bool, error) {
	var row voterModel
	err := r.db.WithContext(ctx).
		Where("id = ?", string(principal)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoterRecord{}, false, nil
		}
		return entities.VoterRecord{}, false, r.logError("election_repo_get_voter_failed", err,
			"voter_id", string(principal),
		)
	}
	return row.toEntity(), true, nil
}

// SaveVoter inserts a voter row. The primary key doubles as the
// at-most-once-registration constraint; a unique violation surfaces as the
// domain duplicate error.
func (r *Repository) SaveVoter(ctx context.Context, voter entities.VoterRecord) error {
	return r.saveVoterTx(r.db.WithContext(ctx), voter, false)
}

func (r *Repository) saveVoterTx(tx *gorm.DB, voter entities.VoterRecord, upsert bool) error {
	row := voterModelFromEntity(voter)
	stmt := tx
	if upsert {
		stmt = stmt.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"has_voted": row.HasVoted,
				"voted_at":  row.VotedAt,
			}),
		})
	}
	if err := stmt.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domainerrors.ErrAlreadyRegistered, voter.Principal)
		}
		return r.logError("election_repo_save_voter_failed", err,
			"voter_id", string(voter.Principal),
		)
	}
	return nil
}

func (r *Repository) CountVoters(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&voterModel{}).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("election_repo_count_voters_failed", err)
	}
	return int(count), nil
}

func (r *Repository) GetCandidate(ctx context.Context, principal entities.Principal) (entities.CandidateTally, bool, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("id = ?", string(principal)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CandidateTally{}, false, nil
		}
		return entities.CandidateTally{}, false, r.logError("election_repo_get_candidate_failed", err,
			"candidate_id", string(principal),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveCandidate(ctx context.Context, candidate entities.CandidateTally) error {
	return r.saveCandidateTx(r.db.WithContext(ctx), candidate, false)
}

func (r *Repository) saveCandidateTx(tx *gorm.DB, candidate entities.CandidateTally, upsert bool) error {
	row := candidateModelFromEntity(candidate)
	stmt := tx
	if upsert {
		stmt = stmt.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"votes":      row.Votes,
				"updated_at": row.UpdatedAt,
			}),
		})
	}
	if err := stmt.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domainerrors.ErrAlreadyRegistered, candidate.Principal)
		}
		return r.logError("election_repo_save_candidate_failed", err,
			"candidate_id", string(candidate.Principal),
		)
	}
	return nil
}

func (r *Repository) ListCandidates(ctx context.Context) ([]entities.CandidateTally, error) {
	var rows []candidateModel
	err := r.db.WithContext(ctx).
		Order("votes DESC, registered_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("election_repo_list_candidates_failed", err)
	}
	items := make([]entities.CandidateTally, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ApplyVote persists one accepted vote as a single transaction: voter flag,
// candidate tally, and the state row with the leader update.
func (r *Repository) ApplyVote(
	ctx context.Context,
	voter entities.VoterRecord,
	candidate entities.CandidateTally,
	state entities.ElectionState,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveVoterTx(tx, voter, true); err != nil {
			return err
		}
		if err := r.saveCandidateTx(tx, candidate, true); err != nil {
			return err
		}
		return r.saveStateTx(tx, state)
	})
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		ID:           envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return r.logError("election_repo_append_outbox_failed", err,
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("election_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	at := publishedAt.UTC()
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &at,
		}).
		Error
	if err != nil {
		return r.logError("election_repo_mark_outbox_failed", err,
			"outbox_id", outboxID,
		)
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := dedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, r.logError("election_repo_reserve_event_failed", result.Error,
			"event_id", eventID,
		)
	}
	if result.RowsAffected > 0 {
		return false, nil
	}

	var existing dedupModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&existing).
		Error
	if err != nil {
		return false, r.logError("election_repo_reserve_event_failed", err,
			"event_id", eventID,
		)
	}
	if !bytes.Equal([]byte(existing.PayloadHash), []byte(payloadHash)) {
		return false, fmt.Errorf("dedup payload conflict for event %s", eventID)
	}
	return true, nil
}

func (r *Repository) AppendAudit(ctx context.Context, record entities.AuditRecord) error {
	row := auditModel{
		ID:         record.AuditID,
		EventID:    record.EventID,
		EventType:  record.EventType,
		SubjectID:  string(record.Subject),
		Payload:    append([]byte(nil), record.Payload...),
		RecordedAt: record.RecordedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return r.logError("election_repo_append_audit_failed", err,
			"event_id", record.EventID,
		)
	}
	return nil
}

func (r *Repository) ListAudit(ctx context.Context, limit int) ([]entities.AuditRecord, error) {
	stmt := r.db.WithContext(ctx).Order("recorded_at ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var rows []auditModel
	if err := stmt.Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_audit_failed", err)
	}
	items := make([]entities.AuditRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.AuditRecord{
			AuditID:    row.ID,
			EventID:    row.EventID,
			EventType:  row.EventType,
			Subject:    entities.Principal(row.SubjectID),
			Payload:    append([]byte(nil), row.Payload...),
			RecordedAt: row.RecordedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/election-ledger",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

type stateModel struct {
	ID              int        `gorm:"column:id;primaryKey"`
	Phase           string     `gorm:"column:phase"`
	VotingEndsAt    *time.Time `gorm:"column:voting_ends_at"`
	LeaderCandidate string     `gorm:"column:leader_candidate"`
	LeaderVotes     int64      `gorm:"column:leader_votes"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (stateModel) TableName() string {
	return "election_state"
}

func stateModelFromEntity(state entities.ElectionState) stateModel {
	row := stateModel{
		ID:              electionStateID,
		Phase:           string(state.Phase),
		LeaderCandidate: string(state.LeaderCandidate),
		LeaderVotes:     int64(state.LeaderVotes),
		UpdatedAt:       state.UpdatedAt.UTC(),
	}
	if state.VotingEndsAt != nil {
		endsAt := state.VotingEndsAt.UTC()
		row.VotingEndsAt = &endsAt
	}
	return row
}

func (m stateModel) toEntity() entities.ElectionState {
	state := entities.ElectionState{
		Phase:           entities.Phase(m.Phase),
		LeaderCandidate: entities.Principal(m.LeaderCandidate),
		LeaderVotes:     uint64(m.LeaderVotes),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.VotingEndsAt != nil {
		endsAt := m.VotingEndsAt.UTC()
		state.VotingEndsAt = &endsAt
	}
	return state
}

type voterModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	HasVoted     bool       `gorm:"column:has_voted"`
	RegisteredAt time.Time  `gorm:"column:registered_at"`
	VotedAt      *time.Time `gorm:"column:voted_at"`
}

func (voterModel) TableName() string {
	return "election_voters"
}

func voterModelFromEntity(voter entities.VoterRecord) voterModel {
	row := voterModel{
		ID:           string(voter.Principal),
		HasVoted:     voter.HasVoted,
		RegisteredAt: voter.RegisteredAt.UTC(),
	}
	if voter.VotedAt != nil {
		votedAt := voter.VotedAt.UTC()
		row.VotedAt = &votedAt
	}
	return row
}

func (m voterModel) toEntity() entities.VoterRecord {
	voter := entities.VoterRecord{
		Principal:    entities.Principal(m.ID),
		HasVoted:     m.HasVoted,
		RegisteredAt: m.RegisteredAt.UTC(),
	}
	if m.VotedAt != nil {
		votedAt := m.VotedAt.UTC()
		voter.VotedAt = &votedAt
	}
	return voter
}

type candidateModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Votes        int64     `gorm:"column:votes"`
	RegisteredAt time.Time `gorm:"column:registered_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (candidateModel) TableName() string {
	return "election_candidates"
}

func candidateModelFromEntity(candidate entities.CandidateTally) candidateModel {
	return candidateModel{
		ID:           string(candidate.Principal),
		Votes:        int64(candidate.Votes),
		RegisteredAt: candidate.RegisteredAt.UTC(),
		UpdatedAt:    candidate.UpdatedAt.UTC(),
	}
}

func (m candidateModel) toEntity() entities.CandidateTally {
	return entities.CandidateTally{
		Principal:    entities.Principal(m.ID),
		Votes:        uint64(m.Votes),
		RegisteredAt: m.RegisteredAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}

type dedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (dedupModel) TableName() string {
	return "election_event_dedup"
}

type auditModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	EventID    string    `gorm:"column:event_id"`
	EventType  string    `gorm:"column:event_type"`
	SubjectID  string    `gorm:"column:subject_id"`
	Payload    []byte    `gorm:"column:payload"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (auditModel) TableName() string {
	return "election_audit"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
var _ ports.AuditRepository = (*Repository)(nil)
