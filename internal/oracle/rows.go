package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dln-labs/dln-ingest/internal/model"
)

// RowMeta carries the per-transaction fields that are constant across
// every row BuildRows emits for one ingest message (spec §4.7 steps
// 5-10).
type RowMeta struct {
	Signature string
	Slot      uint64
	BlockTime time.Time
	ProgramID string
	Status    model.Status
	EventType model.EventType
	OrderID   string
}

// BuildRows composes one analytics row per detailed transfer, pricing
// each via GetPrices, or a single placeholder row if transfers is
// empty (spec §4.7 steps 9-10).
func (c *Client) BuildRows(ctx context.Context, transfers []model.TokenTransfer, meta RowMeta) ([]model.AnalyticsRow, error) {
	now := time.Now().UTC()

	if len(transfers) == 0 {
		row := model.NewPlaceholderRow(meta.Signature, meta.Slot, meta.BlockTime, meta.ProgramID, meta.Status, meta.EventType, meta.OrderID, now)
		return []model.AnalyticsRow{row}, nil
	}

	mintSet := make(map[string]struct{}, len(transfers))
	for _, t := range transfers {
		mintSet[t.Mint] = struct{}{}
	}
	mints := make([]string, 0, len(mintSet))
	for m := range mintSet {
		mints = append(mints, m)
	}

	prices, err := c.GetPrices(ctx, mints)
	if err != nil {
		// GetPrices already degrades internally; this branch only fires
		// on a programming error in the cache layer, so fall through
		// with an empty price map rather than failing the whole batch
		// (spec §4.7 step 9: "continue with empty prices").
		prices = map[string]decimal.Decimal{}
	}

	rows := make([]model.AnalyticsRow, 0, len(transfers))
	for _, t := range transfers {
		amount := t.DeltaAmount.Abs()
		price, known := prices[t.Mint]
		amountUSD := decimal.Zero
		if known {
			// Per-mint decimals (spec §9 Open Question 1, resolved in
			// SPEC_FULL): read from the transfer's own decimals field
			// rather than hardcoding 9 for every mint.
			scale := decimal.New(1, t.Decimals)
			amountUSD = amount.Mul(price).Div(scale)
		}
		rows = append(rows, model.AnalyticsRow{
			Signature:       meta.Signature,
			Slot:            meta.Slot,
			BlockTime:       meta.BlockTime,
			ProgramID:       meta.ProgramID,
			Account:         t.OwnerAccount,
			TokenMint:       t.Mint,
			Amount:          amount.String(),
			AmountUSD:       amountUSD,
			Status:          meta.Status,
			InstructionType: t.InstructionType(),
			EventType:       meta.EventType,
			OrderID:         meta.OrderID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return rows, nil
}
