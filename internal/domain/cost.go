package domain

import (
	"fmt"
	"unicode/utf8"
)

// Cost model identifiers.
const (
	CostModelPromptLength = "prompt_length"
	CostModelUsageTokens  = "usage_tokens"
)

// PromptLengthCost charges the number of characters of the prompt.
type PromptLengthCost struct{}

// Cost returns the prompt length in code points.
func (PromptLengthCost) Cost(req *ChatRequest, _ *CompletionResult) int64 {
	if req == nil {
		return 0
	}
	return int64(utf8.RuneCountInString(req.Prompt))
}

// Name returns the cost model identifier.
func (PromptLengthCost) Name() string {
	return CostModelPromptLength
}

// UsageTokensCost charges the total tokens reported by the provider. When the
// provider reports no usage it falls back to the characters of prompt and
// response.
type UsageTokensCost struct{}

// Cost returns the reported token total.
func (UsageTokensCost) Cost(req *ChatRequest, result *CompletionResult) int64 {
	if result != nil && result.Usage != nil && result.Usage.TotalTokens > 0 {
		return int64(result.Usage.TotalTokens)
	}

	var units int64
	if req != nil {
		units += int64(utf8.RuneCountInString(req.Prompt))
	}
	if result != nil {
		units += int64(utf8.RuneCountInString(result.Text))
	}
	return units
}

// Name returns the cost model identifier.
func (UsageTokensCost) Name() string {
	return CostModelUsageTokens
}

// NewCostModel returns the cost model registered under name.
func NewCostModel(name string) (CostModel, error) {
	switch name {
	case "", CostModelPromptLength:
		return PromptLengthCost{}, nil
	case CostModelUsageTokens:
		return UsageTokensCost{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cost model %q", ErrInvalidArgument, name)
	}
}
