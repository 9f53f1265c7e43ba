package clients

import (
	"fmt"

	"github.com/Fengzdadi/solana-pay-go/types"
)

// RPC failure tags carried in transport errors for diagnosability.
const (
	errGetTransaction     = "get_transaction"
	errGetAccountInfo     = "get_account_info"
	errGetTokenSupply     = "get_token_supply"
	errGetLatestBlockhash = "get_latest_blockhash"
	errGetSignatureStatus = "get_signature_statuses"
)

// wrapRPCError converts an RPC failure into the library's transport error,
// naming the call that failed. Transport errors are surfaced distinctly from
// protocol outcomes so callers can apply their own retry policy.
func wrapRPCError(err error, call, endpoint string) error {
	return &types.Error{
		Code:    types.ErrTransport,
		Message: fmt.Sprintf("%s failed against %s: %v", call, endpoint, err),
		Err:     err,
	}
}
