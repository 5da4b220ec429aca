package electionledger

import (
	"log/slog"
	"time"

	httpadapter "tally/contexts/governance/election-ledger/adapters/http"
	"tally/contexts/governance/election-ledger/adapters/memory"
	"tally/contexts/governance/election-ledger/application/commands"
	"tally/contexts/governance/election-ledger/application/queries"
	"tally/contexts/governance/election-ledger/domain/entities"
	"tally/contexts/governance/election-ledger/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Commands *commands.ElectionUseCase
	Queries  queries.StatusUseCase
	Store    *memory.Store
}

type Dependencies struct {
	Repo   ports.ElectionRepository
	Outbox ports.OutboxWriter
	Audit  ports.AuditRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger

	Owner           entities.Principal
	MinVotingWindow time.Duration
	MaxVotingWindow time.Duration
}

func NewModule(deps Dependencies) Module {
	electionUseCase := &commands.ElectionUseCase{
		Repo:            deps.Repo,
		Outbox:          deps.Outbox,
		Clock:           deps.Clock,
		IDGen:           deps.IDGen,
		Logger:          deps.Logger,
		Owner:           deps.Owner,
		MinVotingWindow: deps.MinVotingWindow,
		MaxVotingWindow: deps.MaxVotingWindow,
	}
	statusUseCase := queries.StatusUseCase{
		Repo:  deps.Repo,
		Audit: deps.Audit,
	}
	return Module{
		Handler: httpadapter.Handler{
			Commands: electionUseCase,
			Queries:  statusUseCase,
			Logger:   deps.Logger,
		},
		Commands: electionUseCase,
		Queries:  statusUseCase,
	}
}

// NewInMemoryModule wires the module against the in-memory store for tests
// and local runs.
func NewInMemoryModule(owner entities.Principal, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repo:   store,
		Outbox: store,
		Audit:  store,
		Clock:  store,
		IDGen:  store,
		Logger: logger,
		Owner:  owner,
	})
	module.Store = store
	return module
}
