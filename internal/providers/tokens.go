package providers

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// CountTokens estimates the token count of text for logging and budget
// checks. Returns 0 when the encoding is unavailable rather than failing
// the caller.
func CountTokens(text string) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Debug("token encoding unavailable", "error", err)
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}
