package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// LogNotification is one push from the program-logs subscription (spec
// §4.5 "{signature, slot}").
type LogNotification struct {
	Signature string
	Slot      uint64
}

// ErrSubscriptionUnsupported is returned by Subscribe when the RPC
// provider does not support logsSubscribe (spec §4.5: "detected by
// error message containing logsSubscribe/Method/not found").
type ErrSubscriptionUnsupported struct {
	Err error
}

func (e *ErrSubscriptionUnsupported) Error() string {
	return fmt.Sprintf("chain: log subscription unsupported: %v", e.Err)
}
func (e *ErrSubscriptionUnsupported) Unwrap() error { return e.Err }

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsSubscribeAck struct {
	Result int    `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type logsNotification struct {
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string `json:"signature"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Subscription owns the websocket connection backing a live
// logsSubscribe feed.
type Subscription struct {
	conn *websocket.Conn
	ch   chan LogNotification
}

// Subscribe opens a websocket to wssURL and subscribes to logs
// mentioning programID at "confirmed" commitment (spec §4.5).
func Subscribe(ctx context.Context, wssURL, programID string) (*Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wssURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: websocket dial: %w", err)
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{programID}},
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("chain: subscribe request: %w", err)
	}

	var ack wsSubscribeAck
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("chain: subscribe ack: %w", err)
	}
	if ack.Error != nil {
		_ = conn.Close()
		if isUnsupportedSubscriptionError(ack.Error.Message) {
			return nil, &ErrSubscriptionUnsupported{Err: errors.New(ack.Error.Message)}
		}
		return nil, fmt.Errorf("chain: subscribe rejected: %s", ack.Error.Message)
	}

	sub := &Subscription{conn: conn, ch: make(chan LogNotification, 64)}
	go sub.readLoop()
	return sub, nil
}

func isUnsupportedSubscriptionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "logssubscribe") || strings.Contains(lower, "method") || strings.Contains(lower, "not found")
}

func (s *Subscription) readLoop() {
	defer close(s.ch)
	for {
		var notif logsNotification
		if err := s.conn.ReadJSON(&notif); err != nil {
			return
		}
		if notif.Params.Result.Value.Signature == "" {
			continue
		}
		s.ch <- LogNotification{
			Signature: notif.Params.Result.Value.Signature,
			Slot:      notif.Params.Result.Context.Slot,
		}
	}
}

// Notifications returns the channel of pushed log notifications. It is
// closed when the underlying connection drops.
func (s *Subscription) Notifications() <-chan LogNotification { return s.ch }

// Close tears down the websocket connection.
func (s *Subscription) Close() error { return s.conn.Close() }
