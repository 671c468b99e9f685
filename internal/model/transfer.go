package model

import "github.com/shopspring/decimal"

// Direction classifies a token transfer relative to the owner account.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// InstructionType mirrors the analytics row's instruction_type column:
// whether the owner received or sent the token, or the row is a
// placeholder with no resolvable transfer.
type InstructionType string

const (
	InstructionReceive InstructionType = "receive"
	InstructionSend    InstructionType = "send"
	InstructionUnknown InstructionType = "unknown"
)

// WrappedNativeMint is the mint address substituted for native SOL
// deltas so native and SPL transfers can be priced uniformly (spec §4.7
// step 7).
const WrappedNativeMint = "So11111111111111111111111111111111111111112"

// NativeDecimals is the fixed decimal count for the native asset leg.
// Unlike SPL mints (whose decimals are read from post-balance metadata,
// see Open Question 1 in DESIGN.md), the native leg has no per-transfer
// decimals metadata to read, so this constant stands.
const NativeDecimals = 9

// TokenTransfer is a per-owner, per-mint balance delta derived from
// pre/post token balances (and, for the native mint, the native balance
// delta).
type TokenTransfer struct {
	OwnerAccount string
	Mint         string
	Decimals     int32
	DeltaAmount  decimal.Decimal // base units, always non-negative
	Direction    Direction
}

// InstructionType reports receive/send for a transfer based on direction.
func (t TokenTransfer) InstructionType() InstructionType {
	if t.Direction == DirectionIn {
		return InstructionReceive
	}
	return InstructionSend
}
