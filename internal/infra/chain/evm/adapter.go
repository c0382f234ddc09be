package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/firstbuy/internal/core/domain"
	"github.com/vietddude/firstbuy/internal/infra/chain"
	"github.com/vietddude/firstbuy/internal/infra/rpc"
)

var _ chain.Adapter = (*EVMAdapter)(nil)

// DefaultBatchSize keeps a batch under the node's per-request item limit.
const DefaultBatchSize = 950

// ErrBlockNotFound is returned when the node has no block at a requested height.
var ErrBlockNotFound = errors.New("block not found")

// BatchError reports a failed sub-batch of a FetchBlocks call.
// Sub-batches are never partially salvaged.
type BatchError struct {
	SubBatch int
	From     uint64
	To       uint64
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("sub-batch %d (heights %d..%d): %v", e.SubBatch, e.From, e.To, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Caller is the subset of rpc.Client used by the adapter.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (json.RawMessage, error)
	BatchCall(ctx context.Context, method string, requests []rpc.BatchRequest) ([]rpc.BatchResponse, error)
}

// Config configures an EVMAdapter.
type Config struct {
	// BatchSize is the maximum number of requests per batch call.
	BatchSize int
	// Concurrency is the number of sub-batches in flight; 1 means sequential.
	Concurrency int
}

type EVMAdapter struct {
	client      Caller
	batchSize   int
	concurrency int
	log         logger.Logger
}

func NewEVMAdapter(client Caller, cfg Config) *EVMAdapter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &EVMAdapter{
		client:      client,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		log:         *logger.Default(),
	}
}

func (a *EVMAdapter) GetLatestBlock(ctx context.Context) (uint64, error) {
	result, err := a.client.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}

	var height hexutil.Uint64
	if err := json.Unmarshal(result, &height); err != nil {
		return 0, fmt.Errorf("invalid block number response: %w", err)
	}
	return uint64(height), nil
}

func (a *EVMAdapter) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	result, err := a.client.Call(ctx, "eth_getBalance", []any{strings.ToLower(address), "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance failed: %w", err)
	}

	var balance hexutil.Big
	if err := json.Unmarshal(result, &balance); err != nil {
		return nil, fmt.Errorf("invalid balance response: %w", err)
	}
	return balance.ToInt(), nil
}

// FetchBlocks splits heights into sub-batches of at most batchSize requests,
// runs them with the configured concurrency and reassembles the blocks in
// request order. Any failed item fails its whole sub-batch.
func (a *EVMAdapter) FetchBlocks(ctx context.Context, heights []uint64) ([]*domain.Block, error) {
	if len(heights) == 0 {
		return nil, nil
	}

	numChunks := (len(heights) + a.batchSize - 1) / a.batchSize
	blocks := make([]*domain.Block, len(heights))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for chunkIdx := 0; chunkIdx < numChunks; chunkIdx++ {
		start := chunkIdx * a.batchSize
		end := min(start+a.batchSize, len(heights))
		chunk := heights[start:end]

		g.Go(func() error {
			fetched, err := a.fetchChunk(ctx, chunk)
			if err != nil {
				return &BatchError{SubBatch: chunkIdx, From: chunk[0], To: chunk[len(chunk)-1], Err: err}
			}
			// Each goroutine owns a disjoint window of blocks.
			copy(blocks[start:end], fetched)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.log.Debug("fetched blocks", "count", len(blocks), "sub_batches", numChunks)
	return blocks, nil
}

func (a *EVMAdapter) fetchChunk(ctx context.Context, heights []uint64) ([]*domain.Block, error) {
	requests := make([]rpc.BatchRequest, len(heights))
	for i, h := range heights {
		requests[i] = rpc.BatchRequest{
			Method: "eth_getBlockByNumber",
			Params: []any{hexutil.EncodeUint64(h), true},
		}
	}

	responses, err := a.client.BatchCall(ctx, "eth_getBlockByNumber", requests)
	if err != nil {
		return nil, err
	}
	if len(responses) != len(requests) {
		return nil, fmt.Errorf("expected %d responses, got %d", len(requests), len(responses))
	}

	blocks := make([]*domain.Block, len(heights))
	for i, resp := range responses {
		if resp.Error != nil {
			return nil, fmt.Errorf("block %d: %w", heights[i], resp.Error)
		}
		block, err := parseBlock(resp.Result)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", heights[i], err)
		}
		if block.Number != heights[i] {
			return nil, fmt.Errorf("block %d: node returned height %d", heights[i], block.Number)
		}
		blocks[i] = block
	}
	return blocks, nil
}

type rpcBlock struct {
	Number       hexutil.Uint64   `json:"number"`
	Hash         string           `json:"hash"`
	Timestamp    hexutil.Uint64   `json:"timestamp"`
	Transactions []rpcTransaction `json:"transactions"`
}

type rpcTransaction struct {
	Hash             string         `json:"hash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	From             string         `json:"from"`
	To               *string        `json:"to"`
	Input            hexutil.Bytes  `json:"input"`
	Value            *hexutil.Big   `json:"value"`
}

func parseBlock(raw json.RawMessage) (*domain.Block, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrBlockNotFound
	}

	var rb rpcBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return nil, fmt.Errorf("invalid block format: %w", err)
	}

	block := &domain.Block{
		Number:       uint64(rb.Number),
		Hash:         rb.Hash,
		Timestamp:    uint64(rb.Timestamp),
		Transactions: make([]*domain.Transaction, 0, len(rb.Transactions)),
	}
	for _, rt := range rb.Transactions {
		block.Transactions = append(block.Transactions, parseTransaction(rt, block.Number))
	}
	return block, nil
}

func parseTransaction(rt rpcTransaction, blockNumber uint64) *domain.Transaction {
	tx := &domain.Transaction{
		Hash:        rt.Hash,
		BlockNumber: blockNumber,
		Index:       int(rt.TransactionIndex),
		From:        strings.ToLower(rt.From),
		Input:       rt.Input,
		Value:       new(big.Int),
	}
	if rt.To != nil {
		tx.To = strings.ToLower(*rt.To)
	}
	if rt.Value != nil {
		tx.Value = rt.Value.ToInt()
	}
	return tx
}
