package parser

import (
	"github.com/dln-labs/dln-ingest/internal/model"
)

// Parser is satisfied by the production implementation and by test
// fakes (spec §9 "each component becomes an interface + one production
// implementation").
type Parser interface {
	Parse(tx Transaction) (*model.DLNEvent, bool)
}

// EventParser is the production implementation of C3.
type EventParser struct {
	// ProgramIDs restricts instruction classification to this set when
	// non-empty (spec §4.3: "instructions whose program id matches the
	// configured set").
	ProgramIDs map[string]bool
}

// New builds an EventParser scoped to programID.
func New(programID string) *EventParser {
	return &EventParser{ProgramIDs: map[string]bool{programID: true}}
}

var _ Parser = (*EventParser)(nil)

// Parse implements spec §4.3 end to end: orderId extraction,
// instruction classification with log-scan fallback, and per-type data
// extraction. Returns (nil, false) if no orderId or no eventType could
// be determined: "an event without a derivable orderId MUST NOT be
// produced" (spec §3 invariant).
func (p *EventParser) Parse(tx Transaction) (*model.DLNEvent, bool) {
	orderID := extractOrderID(tx.LogMessages)
	if orderID == "" {
		return nil, false
	}

	eventType, matched := classifyInstructions(tx.Instructions, p.ProgramIDs)
	if eventType == "" {
		eventType = classifyFromLogs(tx.LogMessages)
		// Fallback classification carries no instruction to extract
		// from; matched stays nil so extractCreated/extractFulfilled
		// emit a minimal payload with empty fields (spec §4.3 "fallback
		// mode").
	}
	if eventType == "" {
		return nil, false
	}

	event := &model.DLNEvent{
		OrderID:   orderID,
		Signature: tx.Signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
	}

	switch eventType {
	case "OrderCreated":
		event.EventType = model.EventOrderCreated
		event.Created = extractCreated(matched)
	case "OrderFulfilled":
		event.EventType = model.EventOrderFulfilled
		event.Fulfilled = extractFulfilled(matched)
	default:
		return nil, false
	}

	return event, true
}
