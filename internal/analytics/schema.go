package analytics

// TransactionsSchema is the DDL for the single base table the pipeline
// writes (spec §3, §6). ReplacingMergeTree resolves duplicate primary
// keys `(signature, account, program_id)` by keeping the row with the
// greatest updated_at, which is what makes at-least-once ingestion
// idempotent (spec §1, §8 invariant 2).
const TransactionsSchema = `
CREATE TABLE IF NOT EXISTS transactions (
    signature         String,
    slot              UInt64,
    block_time        DateTime,
    program_id        String,
    account           String,
    token_mint        String,
    amount            String,
    amount_usd        Decimal64(8),
    status            LowCardinality(String),
    instruction_type  LowCardinality(String),
    event_type        LowCardinality(String),
    order_id          String,
    created_at        DateTime DEFAULT now(),
    updated_at        DateTime DEFAULT now()
)
ENGINE = ReplacingMergeTree(updated_at)
PARTITION BY toYYYYMM(block_time)
ORDER BY (signature, account, program_id, slot)
SETTINGS index_granularity = 8192;
`
