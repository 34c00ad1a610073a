package entropy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoSeed_Positive(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Positive(t, CryptoSeed())
	}
}

func TestSource_WithoutKey(t *testing.T) {
	s := NewSource("")
	assert.False(t, s.Enabled())
	assert.Positive(t, s.Seed(context.Background()))
}

func randomOrg(t *testing.T, reply string) *Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generateIntegers", req.Method)
		assert.Equal(t, "key", req.Params["apiKey"])
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)

	s := NewSource("key")
	s.endpoint = srv.URL
	return s
}

func TestSource_CombinesDraws(t *testing.T) {
	s := randomOrg(t, `{"result":{"random":{"data":[1,5]}}}`)
	require.True(t, s.Enabled())
	assert.Equal(t, int64(1<<31|5), s.Seed(context.Background()))
}

func TestSource_FallsBackOnError(t *testing.T) {
	s := randomOrg(t, `{"error":{"message":"quota exceeded"}}`)
	_, err := s.fetch(context.Background())
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Positive(t, s.Seed(context.Background()))
}
