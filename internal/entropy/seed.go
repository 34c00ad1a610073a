// Package entropy picks seeds for new runs. A run's seed is recorded with
// it, so only the choice of seed is random; the run itself replays.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultEndpoint is the random.org JSON-RPC endpoint.
const DefaultEndpoint = "https://api.random.org/json-rpc/4/invoke"

// Source draws seeds from random.org when it has an API key and from
// crypto/rand otherwise.
type Source struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSource creates a seed source. An empty apiKey means crypto/rand only.
func NewSource(apiKey string) *Source {
	return &Source{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether the source will ask random.org.
func (s *Source) Enabled() bool {
	return s != nil && s.apiKey != ""
}

// Seed returns a non-zero seed. random.org failures fall back to
// crypto/rand and are only logged.
func (s *Source) Seed(ctx context.Context) int64 {
	if s.Enabled() {
		seed, err := s.fetch(ctx)
		if err == nil && seed != 0 {
			return seed
		}
		slog.Warn("random.org unavailable, using local entropy", "error", err)
	}
	return CryptoSeed()
}

func (s *Source) fetch(ctx context.Context) (int64, error) {
	// Two 31-bit draws make one 62-bit seed.
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey": s.apiKey,
			"n":      2,
			"min":    0,
			"max":    1<<31 - 1,
		},
		"id": 1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("random.org request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("random.org read: %w", err)
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("random.org parse: %w", err)
	}
	if result.Error != nil {
		return 0, fmt.Errorf("random.org: %s", result.Error.Message)
	}
	data := result.Result.Random.Data
	if len(data) != 2 {
		return 0, errors.New("random.org: short response")
	}

	slog.Debug("seed drawn from random.org")
	return data[0]<<31 | data[1], nil
}

// CryptoSeed returns a positive seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		return 1
	}
	return seed
}
