// Package parser implements the event parser (spec §4.3, C3): orderId
// extraction from log messages, instruction classification, and
// per-event-type data extraction, against a provider-agnostic
// transaction shape so this package never imports the chain RPC
// client.
package parser

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instruction is one decoded (or opaque) instruction within a
// transaction, restricted to the fields the parser needs (spec §4.3
// "input").
type Instruction struct {
	ProgramID string
	// Name is the decoded instruction name, lowercased by the caller is
	// not required; Parse does its own case-insensitive comparison.
	// Empty when the instruction's data could not be decoded.
	Name string
	// Args holds decoded instruction arguments keyed by name (e.g.
	// "giveChainId", "giveAmount").
	Args map[string]string
	// Accounts maps a role name (e.g. "maker", "giveToken") to the
	// account's canonical pubkey text.
	Accounts map[string]string
}

// TokenBalance is one entry from a transaction's pre/post token
// balance list.
type TokenBalance struct {
	AccountIndex int
	Owner        string
	Mint         string
	Decimals     int32
	Amount       decimal.Decimal // base units
}

// Transaction is the input shape C3 operates on (spec §4.3 "Input"):
// instruction list, pre/post token balances, pre/post native balances,
// and log messages. internal/chain is responsible for producing this
// from the RPC response.
type Transaction struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	Failed    bool // meta.err != nil

	Instructions []Instruction

	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance

	// PreNativeBalances/PostNativeBalances are lamports indexed by
	// account index, with AccountOwners giving the account pubkey at the same
	// index (spec §4.7 step 7, native-mint delta).
	PreNativeBalances  []uint64
	PostNativeBalances []uint64
	AccountOwners      []string

	LogMessages []string
}
