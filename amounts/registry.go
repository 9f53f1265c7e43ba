package amounts

import (
	"context"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Fengzdadi/solana-pay-go/clients"
)

// DefaultDecimalsCacheSize bounds the registry cache when the caller does not.
const DefaultDecimalsCacheSize = 512

// Registry looks up and caches per-mint decimal precision. Entries live for
// the lifetime of the registry and are never invalidated internally: mint
// decimals are immutable on-chain, so the only cost of the cache is its
// bounded memory, left to the caller to size for long-running processes.
//
// The underlying LRU is internally synchronized; a registry may be shared by
// any number of concurrent build and validate calls.
type Registry struct {
	ledger clients.Ledger
	cache  *lru.Cache[solana.PublicKey, uint8]
}

func NewRegistry(ledger clients.Ledger, size int) (*Registry, error) {
	if size <= 0 {
		size = DefaultDecimalsCacheSize
	}
	cache, err := lru.New[solana.PublicKey, uint8](size)
	if err != nil {
		return nil, err
	}
	return &Registry{ledger: ledger, cache: cache}, nil
}

// Decimals returns the precision of a mint, consulting the ledger on a cache
// miss.
func (r *Registry) Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	if decimals, ok := r.cache.Get(mint); ok {
		return decimals, nil
	}
	decimals, err := r.ledger.FetchTokenDecimals(ctx, mint)
	if err != nil {
		return 0, err
	}
	r.cache.Add(mint, decimals)
	return decimals, nil
}
