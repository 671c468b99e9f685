package model

import "time"

// EventType names the two protocol instructions this pipeline
// understands. Decoding any other instruction is out of scope (spec §1).
type EventType string

const (
	EventOrderCreated   EventType = "OrderCreated"
	EventOrderFulfilled EventType = "OrderFulfilled"
)

// OrderCreatedData is the event-specific payload for OrderCreated.
// Fields are left at their zero value when the source instruction did
// not carry them (optional fields) or when classification fell back to
// log-scanning (spec §4.3 "fallback mode").
type OrderCreatedData struct {
	Maker                    string `json:"maker,omitempty"`
	GiveChainID              uint64 `json:"giveChainId,omitempty"`
	TakeChainID              uint64 `json:"takeChainId,omitempty"`
	GiveToken                string `json:"giveToken,omitempty"`
	TakeToken                string `json:"takeToken,omitempty"`
	GiveAmount               string `json:"giveAmount,omitempty"`
	TakeAmount                string `json:"takeAmount,omitempty"`
	Receiver                 string `json:"receiver,omitempty"`
	AllowedTaker             string `json:"allowedTaker,omitempty"`
	AllowedCancelBeneficiary string `json:"allowedCancelBeneficiary,omitempty"`
	ExpirySlot               *uint64 `json:"expirySlot,omitempty"`
	AffiliateFee             string `json:"affiliateFee,omitempty"`
}

// OrderFulfilledData is the event-specific payload for OrderFulfilled.
type OrderFulfilledData struct {
	Fulfiller          string `json:"fulfiller,omitempty"`
	OrderBeneficiary   string `json:"orderBeneficiary,omitempty"`
	UnlockBeneficiary  string `json:"unlockBeneficiary,omitempty"`
	GiveAmount         string `json:"giveAmount,omitempty"`
	TakeAmount         string `json:"takeAmount,omitempty"`
}

// DLNEvent is the typed, transient event C3 emits for a transaction that
// carries a recognizable DLN instruction. An event without a derivable
// OrderID must never be constructed: parser.EventParser.Parse, its only
// producer, builds one only once both orderId and eventType are known.
type DLNEvent struct {
	EventType EventType
	OrderID   string
	Signature string
	Slot      uint64
	BlockTime time.Time

	Created   *OrderCreatedData
	Fulfilled *OrderFulfilledData
}
