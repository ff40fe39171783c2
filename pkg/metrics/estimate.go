package metrics

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

var encoders sync.Map // model -> *tiktoken.Tiktoken

// EstimateTokens counts tokens with the model's BPE encoding when tiktoken
// knows the model, and falls back to a four-characters-per-token heuristic.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encoderFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}

// Estimate builds a TokenUsage for providers that do not report usage.
func Estimate(model, prompt, completion string) TokenUsage {
	in := EstimateTokens(model, prompt)
	out := EstimateTokens(model, completion)
	return TokenUsage{
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
		Estimated:        true,
	}
}

func encoderFor(model string) *tiktoken.Tiktoken {
	if model == "" {
		return nil
	}
	if cached, ok := encoders.Load(model); ok {
		enc, _ := cached.(*tiktoken.Tiktoken)
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// remember the miss so unknown models skip the lookup next time
		encoders.Store(model, (*tiktoken.Tiktoken)(nil))
		return nil
	}
	encoders.Store(model, enc)
	return enc
}
