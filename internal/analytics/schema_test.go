package analytics_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dln-labs/dln-ingest/internal/analytics"
)

func TestTransactionsSchemaShape(t *testing.T) {
	ddl := analytics.TransactionsSchema

	require.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS transactions")
	require.Contains(t, ddl, "ENGINE = ReplacingMergeTree(updated_at)")
	require.Contains(t, ddl, "ORDER BY (signature, account, program_id, slot)")

	for _, col := range []string{"signature", "slot", "block_time", "program_id", "account", "token_mint", "amount", "amount_usd", "status", "order_id"} {
		require.True(t, strings.Contains(ddl, col), "expected column %s in schema", col)
	}
}
