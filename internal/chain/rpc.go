package chain

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/dln-labs/dln-ingest/internal/config"
	"github.com/dln-labs/dln-ingest/internal/model"
	"github.com/dln-labs/dln-ingest/internal/parser"
)

// SignatureInfo is the subset of "get signatures for an address" the
// backfill indexer needs (spec §6).
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64
}

// Client wraps the chain RPC surface the pipeline depends on (spec §6):
// GetSignaturesForAddress and GetTransaction, both against
// gagliardetto/solana-go/rpc.
type Client struct {
	rpc       *rpc.Client
	programID solana.PublicKey
	timeout   time.Duration
}

// New builds a Client bound to cfg.RPCURL, using pool's "chain-rpc"
// HTTP client.
func New(cfg *config.Config, pool *Pool) (*Client, error) {
	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("chain: invalid program id: %w", err)
	}

	httpClient := pool.GetClient("chain-rpc", cfg.RPCTimeout)
	rpcClient := rpc.NewWithClient(cfg.RPCURL, httpClient)

	return &Client{rpc: rpcClient, programID: programID, timeout: cfg.RPCTimeout}, nil
}

// GetSignaturesForAddress fetches up to limit signatures older than
// before (spec §4.4). before == "" fetches from the tip.
func (c *Client) GetSignaturesForAddress(ctx context.Context, before string, limit int) ([]SignatureInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, model.NewPermanentError("invalid before signature", err)
		}
		opts.Before = sig
	}

	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, c.programID, opts)
	if err != nil {
		return nil, fmt.Errorf("chain: get signatures for address: %w", err)
	}

	infos := make([]SignatureInfo, 0, len(out))
	for _, s := range out {
		infos = append(infos, SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			BlockTime: blockTimeSeconds(s.BlockTime),
		})
	}
	return infos, nil
}

func blockTimeSeconds(bt *solana.UnixTimeSeconds) *int64 {
	if bt == nil {
		return nil
	}
	v := int64(*bt)
	return &v
}

// GetParsedTransaction fetches and converts one transaction into the
// provider-agnostic shape the event parser (C3) operates on (spec §6
// "get (parsed) transaction by signature").
func (c *Client) GetParsedTransaction(ctx context.Context, signature string) (*parser.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, model.NewPermanentError("invalid signature", err)
	}

	maxVersion := uint64(0)
	tx, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingJSONParsed,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, classifyRPCError(err)
	}
	if tx == nil || tx.Transaction == nil {
		return nil, model.NewPermanentError("transaction not found", fmt.Errorf("signature %s", signature))
	}

	return convertTransaction(signature, tx)
}

// GetBlockTime performs the best-effort block timestamp lookup used by
// the realtime indexer (spec §4.5 step 2).
func (c *Client) GetBlockTime(ctx context.Context, slot uint64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bt, err := c.rpc.GetBlockTime(ctx, slot)
	if err != nil {
		return 0, fmt.Errorf("chain: get block time: %w", err)
	}
	if bt == nil {
		return 0, fmt.Errorf("chain: block time unavailable for slot %d", slot)
	}
	return int64(*bt), nil
}

func classifyRPCError(err error) error {
	if err == nil {
		return nil
	}
	if err == rpc.ErrNotFound {
		return model.NewPermanentError("transaction not found", err)
	}
	return fmt.Errorf("chain: get transaction: %w", err)
}

func parseInstructionArgNumber(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case string:
		return n
	default:
		return ""
	}
}
