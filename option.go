package solanapay

import (
	"github.com/Fengzdadi/solana-pay-go/clients"
	"github.com/Fengzdadi/solana-pay-go/logger"
	"github.com/Fengzdadi/solana-pay-go/metrics"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithLedger swaps the RPC-backed ledger for a custom implementation. Mostly
// useful for tests and custom transports.
func WithLedger(l clients.Ledger) Option {
	return func(c *Client) {
		c.ledger = l
	}
}
