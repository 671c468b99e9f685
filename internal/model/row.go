package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status mirrors the analytics row's status column.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// AnalyticsRow is one persisted row of the `transactions` table (spec
// §3). Its primary key is (Signature, Account, ProgramID); duplicate
// primary keys are resolved by the store's ReplacingMergeTree semantics
// using UpdatedAt as the tiebreaker, so repeated ingestion of the same
// signature is idempotent up to timestamps.
type AnalyticsRow struct {
	Signature       string
	Slot            uint64
	BlockTime       time.Time
	ProgramID       string
	Account         string
	TokenMint       string
	Amount          string // absolute value, base units, as a string
	AmountUSD       decimal.Decimal
	Status          Status
	InstructionType InstructionType
	EventType       EventType
	OrderID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPlaceholderRow builds the single row persisted when a recognized
// event produced zero token transfers (spec §4.7 step 10, invariant in
// §3: "exactly one placeholder row with empty account/mint and
// instructionType='unknown'").
func NewPlaceholderRow(sig string, slot uint64, blockTime time.Time, programID string, status Status, eventType EventType, orderID string, now time.Time) AnalyticsRow {
	return AnalyticsRow{
		Signature:       sig,
		Slot:            slot,
		BlockTime:       blockTime,
		ProgramID:       programID,
		Account:         "",
		TokenMint:       "",
		Amount:          "0",
		AmountUSD:       decimal.Zero,
		Status:          status,
		InstructionType: InstructionUnknown,
		EventType:       eventType,
		OrderID:         orderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
