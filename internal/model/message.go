// Package model defines the domain types that flow through the
// ingestion pipeline: ingest messages, parsed DLN events, token
// transfers, and the analytics row they compress into.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies which producer discovered a signature.
type Source string

const (
	SourceHistory  Source = "history"
	SourceRealtime Source = "realtime"
)

// Priority is carried on the bus but not currently used to reorder
// delivery; it exists so producers can express intent.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// IngestMessage is the sum type carried on the transaction bus (C1).
// It is validated once at the bus boundary; internal code operates on
// this tagged struct, never on a raw map (spec §9 "dynamic message
// shapes" redesign flag).
type IngestMessage struct {
	Signature   string    `json:"signature"`
	Slot        uint64    `json:"slot"`
	BlockTime   *int64    `json:"blockTime,omitempty"`
	Source      Source    `json:"source"`
	ProgramID   string    `json:"programId"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
	Attempt     int       `json:"attempt"`
	Priority    Priority  `json:"priority"`
}

// Validate checks the minimal shape required for the message to be
// processed. A failure here is a Validation error (spec §7): permanent,
// ack without retry.
func (m *IngestMessage) Validate() error {
	if m.Signature == "" {
		return fmt.Errorf("ingest message: missing signature")
	}
	if m.ProgramID == "" {
		return fmt.Errorf("ingest message: missing programId")
	}
	if m.Source != SourceHistory && m.Source != SourceRealtime {
		return fmt.Errorf("ingest message: invalid source %q", m.Source)
	}
	if m.Attempt < 0 {
		return fmt.Errorf("ingest message: negative attempt %d", m.Attempt)
	}
	return nil
}

// Marshal serializes the message for publication.
func (m *IngestMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalIngestMessage parses and validates a delivery body.
func UnmarshalIngestMessage(body []byte) (*IngestMessage, error) {
	var m IngestMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("ingest message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
