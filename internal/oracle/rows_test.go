package oracle_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/model"
	"github.com/dln-labs/dln-ingest/internal/oracle"
)

func TestBuildRowsEmptyTransfersYieldsPlaceholder(t *testing.T) {
	c, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]map[string]string{})
	})

	rows, err := c.BuildRows(context.Background(), nil, oracle.RowMeta{
		Signature: "sig1",
		Slot:      42,
		BlockTime: time.Unix(1000, 0).UTC(),
		ProgramID: "prog",
		Status:    model.StatusSuccess,
		EventType: model.EventOrderCreated,
		OrderID:   "order1",
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, model.InstructionUnknown, rows[0].InstructionType)
	require.Equal(t, "0", rows[0].Amount)
}

func TestBuildRowsPricesPerMintDecimals(t *testing.T) {
	c, _ := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]map[string]string{
			"mintUSDC": {"usdPrice": "1.00"},
		})
	})

	transfers := []model.TokenTransfer{
		{
			OwnerAccount: "ownerA",
			Mint:         "mintUSDC",
			Decimals:     6,
			DeltaAmount:  decimal.NewFromInt(1_000_000), // 1.0 USDC in base units
			Direction:    model.DirectionIn,
		},
	}

	rows, err := c.BuildRows(context.Background(), transfers, oracle.RowMeta{
		Signature: "sig2",
		Slot:      1,
		BlockTime: time.Now().UTC(),
		ProgramID: "prog",
		Status:    model.StatusSuccess,
		EventType: model.EventOrderFulfilled,
		OrderID:   "order2",
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "1", rows[0].AmountUSD.String())
	require.Equal(t, model.InstructionReceive, rows[0].InstructionType)
}
