package parser

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOrderID_NoMatch(t *testing.T) {
	assert.Equal(t, "", extractOrderID(nil))
	assert.Equal(t, "", extractOrderID([]string{"Program log: hello world"}))
}

func TestExtractOrderID_HexPattern(t *testing.T) {
	hex64 := "ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789"
	got := extractOrderID([]string{"Program log: OrderId: 0x" + hex64})
	require.NotEmpty(t, got)
	assert.Equal(t, "abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789", got)
}

func TestExtractOrderID_DecimalPattern(t *testing.T) {
	got := extractOrderID([]string{"Program log: Order Id: 1234567890123"})
	assert.Equal(t, "1234567890123", got)
}

func TestExtractOrderID_ProgramDataFallback(t *testing.T) {
	payload := make([]byte, 48)
	for i := 8; i < 40; i++ {
		payload[i] = byte(i)
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	got := extractOrderID([]string{"Program data: " + encoded})
	require.NotEmpty(t, got)
	assert.Len(t, got, 64)
}

func TestExtractOrderID_ProgramDataAllZeroRejected(t *testing.T) {
	payload := make([]byte, 48)
	encoded := base64.StdEncoding.EncodeToString(payload)
	got := extractOrderID([]string{"Program data: " + encoded})
	assert.Equal(t, "", got)
}

func TestParse_CreatedByInstruction(t *testing.T) {
	p := New("Prog111")
	tx := Transaction{
		Signature: "sig1",
		LogMessages: []string{
			"Program log: OrderId: " + repeatHex("ab", 32),
		},
		Instructions: []Instruction{
			{
				ProgramID: "Prog111",
				Name:      "createOrder",
				Args:      map[string]string{"giveAmount": "1000000000", "giveChainId": "1"},
				Accounts:  map[string]string{"maker": "Maker111"},
			},
		},
	}

	event, ok := p.Parse(tx)
	require.True(t, ok)
	assert.Equal(t, "OrderCreated", string(event.EventType))
	require.NotNil(t, event.Created)
	assert.Equal(t, "Maker111", event.Created.Maker)
	assert.Equal(t, "1000000000", event.Created.GiveAmount)
	assert.Equal(t, uint64(1), event.Created.GiveChainID)
}

func TestParse_FulfilledByLogFallback(t *testing.T) {
	p := New("Prog111")
	tx := Transaction{
		Signature: "sig2",
		LogMessages: []string{
			"Program log: Order fulfilled: " + repeatHex("cd", 32),
			"Program log: instruction: FulfillOrder",
		},
		Instructions: []Instruction{
			{ProgramID: "Prog111", Name: ""},
		},
	}

	event, ok := p.Parse(tx)
	require.True(t, ok)
	assert.Equal(t, "OrderFulfilled", string(event.EventType))
	assert.NotNil(t, event.Fulfilled)
	assert.Equal(t, "", event.Fulfilled.Fulfiller)
}

func TestParse_NoOrderID_NoEvent(t *testing.T) {
	p := New("Prog111")
	tx := Transaction{LogMessages: []string{"Program log: nothing interesting"}}
	_, ok := p.Parse(tx)
	assert.False(t, ok)
}

func repeatHex(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}
