// Package electionledger implements the single-election voting ledger
// inside the governance context.
//
// The module owns the election lifecycle (registration, voting window,
// winner declaration), the voter and candidate registries, incremental
// leader tracking, and ledger event production through outbox-backed
// workers. It keeps business rules in application/domain layers and
// isolates infrastructure concerns behind ports and adapters.
package electionledger
