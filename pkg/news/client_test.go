package news

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func asFetchError(err error, target **FetchError) bool {
	return errors.As(err, target)
}

func TestMentionsQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		text    string
		symbols []string
		want    bool
	}{
		{"all terms present", "Electric Vehicles", "electric vehicles are selling", nil, true},
		{"terms out of order", "vehicles electric", "Electric vehicles sell", nil, true},
		{"missing term", "electric trucks", "electric vehicles", nil, false},
		{"symbol match", "tsla", "unrelated headline", []string{"AAPL", " TSLA"}, true},
		{"empty query", "  ", "anything", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mentionsQuery(tt.query, tt.text, tt.symbols))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a \n  b", 10))
	assert.Equal(t, "héll...", truncate("héllo world", 4))
}

func TestIsRateLimited(t *testing.T) {
	assert.Equal(t, false, IsRateLimited(nil))
	assert.Equal(t, false, IsRateLimited(errors.New("x")))
	assert.Equal(t, true, IsRateLimited(&FetchError{Provider: "p", RateLimited: true, Err: errors.New("429")}))
}
