package chain

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/dln-labs/dln-ingest/internal/parser"
)

// rawParsedMessage mirrors the shape the RPC node returns for
// encoding=jsonParsed, which gagliardetto/solana-go does not fully
// type (it exposes the message as a generic json.RawMessage). Decoding
// it directly keeps this package from depending on solana-go's partial
// parsed-instruction types.
type rawParsedMessage struct {
	Message struct {
		AccountKeys []struct {
			Pubkey string `json:"pubkey"`
		} `json:"accountKeys"`
		Instructions []rawParsedInstruction `json:"instructions"`
	} `json:"message"`
}

type rawParsedInstruction struct {
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
}

type rawParsedInfo struct {
	Type string                 `json:"type"`
	Info map[string]interface{} `json:"info"`
}

// accountRoleKeys lists the well-known keys of a parsed instruction's
// "info" object that are copied, under the same name, into the role map
// the event parser (C3) expects (spec §4.3 "account-list lookups by
// name").
var accountRoleKeys = []string{
	"maker", "giveToken", "takeToken", "receiver", "allowedTaker",
	"allowedCancelBeneficiary", "fulfiller", "orderBeneficiary", "unlockBeneficiary",
}

var amountArgKeys = []string{
	"giveChainId", "takeChainId", "giveAmount", "takeAmount", "expirySlot", "affiliateFee",
}

func convertTransaction(signature string, tx *rpc.GetTransactionResult) (*parser.Transaction, error) {
	out := &parser.Transaction{
		Signature: signature,
		Slot:      tx.Slot,
	}
	if tx.BlockTime != nil {
		out.BlockTime = time.Unix(int64(*tx.BlockTime), 0).UTC()
	}
	if tx.Meta != nil {
		out.Failed = tx.Meta.Err != nil
		out.LogMessages = tx.Meta.LogMessages
		out.PreTokenBalances = convertTokenBalances(tx.Meta.PreTokenBalances)
		out.PostTokenBalances = convertTokenBalances(tx.Meta.PostTokenBalances)
		out.PreNativeBalances = tx.Meta.PreBalances
		out.PostNativeBalances = tx.Meta.PostBalances
	}

	if tx.Transaction != nil {
		var raw rawParsedMessage
		if err := json.Unmarshal(*tx.Transaction, &raw); err == nil {
			for _, key := range raw.Message.AccountKeys {
				out.AccountOwners = append(out.AccountOwners, key.Pubkey)
			}
			out.Instructions = convertInstructions(raw.Message.Instructions)
		}
		// A decode failure leaves Instructions empty; the parser falls
		// back to log-scanning classification (spec §4.3).
	}

	return out, nil
}

func convertTokenBalances(balances []rpc.TokenBalance) []parser.TokenBalance {
	out := make([]parser.TokenBalance, 0, len(balances))
	for _, b := range balances {
		if b.UiTokenAmount == nil {
			continue
		}
		amount, err := decimal.NewFromString(b.UiTokenAmount.Amount)
		if err != nil {
			continue
		}
		owner := ""
		if b.Owner != nil {
			owner = b.Owner.String()
		}
		out = append(out, parser.TokenBalance{
			AccountIndex: int(b.AccountIndex),
			Owner:        owner,
			Mint:         b.Mint.String(),
			Decimals:     int32(b.UiTokenAmount.Decimals),
			Amount:       amount,
		})
	}
	return out
}

func convertInstructions(raw []rawParsedInstruction) []parser.Instruction {
	out := make([]parser.Instruction, 0, len(raw))
	for _, r := range raw {
		ins := parser.Instruction{
			ProgramID: r.ProgramID,
			Args:      map[string]string{},
			Accounts:  map[string]string{},
		}
		if len(r.Parsed) > 0 {
			var p rawParsedInfo
			if err := json.Unmarshal(r.Parsed, &p); err == nil {
				ins.Name = p.Type
				for _, role := range accountRoleKeys {
					if v, ok := p.Info[role].(string); ok {
						ins.Accounts[role] = v
					}
				}
				for _, arg := range amountArgKeys {
					if v, ok := p.Info[arg]; ok {
						ins.Args[arg] = parseInstructionArgNumber(v)
					}
				}
			}
		}
		out = append(out, ins)
	}
	return out
}
