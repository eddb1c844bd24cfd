package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"marketlens/internal/model"
)

// Fetcher retrieves raw items matching a free-text query from one provider.
type Fetcher interface {
	Name() string
	Source() model.Source
	Fetch(ctx context.Context, query string, limit int) ([]model.RawItem, error)
}

// FetchError is a per-provider failure. It never aborts the other providers.
type FetchError struct {
	Provider    string
	StatusCode  int
	RateLimited bool
	Err         error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s fetch: %v", e.Provider, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a FetchError caused by an upstream 429.
func IsRateLimited(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.RateLimited
}

// getJSON performs a rate limited GET and decodes a 2xx JSON body into out.
func getJSON(ctx context.Context, httpClient *http.Client, limiter *rate.Limiter, provider, url string, headers map[string]string, out any) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return &FetchError{Provider: provider, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &FetchError{Provider: provider, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &FetchError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &FetchError{Provider: provider, StatusCode: resp.StatusCode, RateLimited: true, Err: errors.New("rate limited")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &FetchError{Provider: provider, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &FetchError{Provider: provider, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// mentionsQuery reports whether every term of query appears in the text or
// the query equals one of the symbols (case-insensitive).
func mentionsQuery(query, text string, symbols []string) bool {
	q := strings.TrimSpace(strings.ToLower(query))
	if q == "" {
		return true
	}

	for _, s := range symbols {
		if strings.EqualFold(strings.TrimSpace(s), q) {
			return true
		}
	}

	lower := strings.ToLower(text)
	for _, term := range strings.Fields(q) {
		if !strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func truncate(s string, max int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max]) + "..."
}
