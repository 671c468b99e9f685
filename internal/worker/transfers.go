package worker

import (
	"github.com/shopspring/decimal"

	"github.com/dln-labs/dln-ingest/internal/model"
	"github.com/dln-labs/dln-ingest/internal/parser"
)

// enumerateTransfers derives the per-owner token transfers for one
// transaction (spec §4.7 steps 7-8): SPL deltas matched by account
// index between pre/post token balances, plus at most one synthetic
// transfer for the native leg (the account with the largest positive
// lamport delta, mapped to the wrapped-native mint). The resulting set
// doubles as both the "tokenMints to price" set (step 7) and the
// detailed per-owner rows (step 8): BuildRows derives the mint set to
// price directly from whatever is passed to it.
func enumerateTransfers(tx *parser.Transaction) []model.TokenTransfer {
	var transfers []model.TokenTransfer

	preByIndex := make(map[int]parser.TokenBalance, len(tx.PreTokenBalances))
	for _, b := range tx.PreTokenBalances {
		preByIndex[b.AccountIndex] = b
	}

	for _, post := range tx.PostTokenBalances {
		preAmount := decimal.Zero
		if pre, ok := preByIndex[post.AccountIndex]; ok {
			preAmount = pre.Amount
		}
		delta := post.Amount.Sub(preAmount)
		if delta.IsZero() {
			continue
		}
		direction := model.DirectionIn
		if delta.IsNegative() {
			direction = model.DirectionOut
		}
		transfers = append(transfers, model.TokenTransfer{
			OwnerAccount: post.Owner,
			Mint:         post.Mint,
			Decimals:     post.Decimals,
			DeltaAmount:  delta.Abs(),
			Direction:    direction,
		})
	}

	if t, ok := nativeTransfer(tx); ok {
		transfers = append(transfers, t)
	}

	return transfers
}

func nativeTransfer(tx *parser.Transaction) (model.TokenTransfer, bool) {
	n := len(tx.PreNativeBalances)
	if len(tx.PostNativeBalances) < n {
		n = len(tx.PostNativeBalances)
	}

	maxDelta := int64(0)
	maxIdx := -1
	for i := 0; i < n; i++ {
		delta := int64(tx.PostNativeBalances[i]) - int64(tx.PreNativeBalances[i])
		if delta > maxDelta {
			maxDelta = delta
			maxIdx = i
		}
	}
	if maxIdx < 0 {
		return model.TokenTransfer{}, false
	}

	owner := ""
	if maxIdx < len(tx.AccountOwners) {
		owner = tx.AccountOwners[maxIdx]
	}
	return model.TokenTransfer{
		OwnerAccount: owner,
		Mint:         model.WrappedNativeMint,
		Decimals:     model.NativeDecimals,
		DeltaAmount:  decimal.NewFromInt(maxDelta),
		Direction:    model.DirectionIn,
	}, true
}
