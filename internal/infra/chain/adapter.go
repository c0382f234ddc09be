package chain

import (
	"context"
	"math/big"

	"github.com/vietddude/firstbuy/internal/core/domain"
)

// Adapter defines the chain-level boundary used by the syncer.
type Adapter interface {
	// GetLatestBlock returns the latest block number on the chain
	GetLatestBlock(ctx context.Context) (uint64, error)

	// FetchBlocks fetches blocks with full transactions.
	// The i-th block answers the i-th height.
	FetchBlocks(ctx context.Context, heights []uint64) ([]*domain.Block, error)

	// GetBalance returns the latest native balance of an address in wei
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}
