package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/Fengzdadi/solana-pay-go/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParsePaymentRequest parses and validates a PaymentRequest from JSON.
func ParsePaymentRequest(data []byte) (*types.PaymentRequest, error) {
	var req types.PaymentRequest

	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("failed to parse payment request: %v", err),
		}
	}

	// Validate using struct tags
	if err := validate.Struct(&req); err != nil {
		return nil, &types.Error{
			Code:    types.ErrInvalidRequest,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	// Semantic validation on top of shape validation
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

// ParseValidationConfig parses a ValidationConfig from JSON.
func ParseValidationConfig(data []byte) (*types.ValidationConfig, error) {
	var cfg types.ValidationConfig

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &types.Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("failed to parse validation config: %v", err),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParseConfig parses a client Config from JSON.
func ParseConfig(data []byte) (*types.Config, error) {
	var cfg types.Config

	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &types.Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("failed to parse config: %v", err),
		}
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, &types.Error{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("validation failed: %v", err),
		}
	}

	return &cfg, nil
}

// SerializePaymentRequest converts a PaymentRequest to JSON
func SerializePaymentRequest(req *types.PaymentRequest) ([]byte, error) {
	return json.Marshal(req)
}

// SerializeValidationResult converts a ValidationResult to JSON
func SerializeValidationResult(result *types.ValidationResult) ([]byte, error) {
	return json.Marshal(result)
}

// SerializeTransactionPlan converts a TransactionPlan to JSON
func SerializeTransactionPlan(plan *types.TransactionPlan) ([]byte, error) {
	return json.Marshal(plan)
}

// NormalizeJSON formats JSON with consistent indentation
func NormalizeJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

// CompactJSON removes whitespace from JSON
func CompactJSON(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	if err := json.Compact(&buffer, data); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
