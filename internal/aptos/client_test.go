package aptos

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAptos_Client_ConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	require.NoError(t, cfg.Validate())
	require.Equal(t, defaultNodeURL, cfg.NodeURL)
	require.Equal(t, defaultTimeout, cfg.Timeout)
	require.NotNil(t, cfg.HTTPClient)
}

func TestAptos_Client_LedgerInfo(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/", r.URL.Path)
		_, _ = w.Write([]byte(`{"chain_id":2,"ledger_version":"123456","ledger_timestamp":"1700000000000000"}`))
	}))
	defer srv.Close()

	client, err := NewClient(discardLogger(), Config{NodeURL: srv.URL})
	require.NoError(t, err)

	info, err := client.LedgerInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, info.ChainID)
	require.Equal(t, "123456", info.LedgerVersion)
}

func TestAptos_Client_RecentTransactions(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"type":"user_transaction","version":"100","hash":"0xaa","success":true,"sender":"0x1","gas_used":"150","payload":{"type":"entry_function_payload","function":"0x1::aptos_account::transfer","arguments":["0x2","5000000"]}},
			{"type":"block_metadata_transaction","version":"101","hash":"0xbb","success":true}
		]`))
	}))
	defer srv.Close()

	client, err := NewClient(discardLogger(), Config{NodeURL: srv.URL})
	require.NoError(t, err)

	txs, err := client.RecentTransactions(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	require.True(t, txs[0].IsUser())
	require.Equal(t, uint64(150), txs[0].GasUsedValue())
	require.NotNil(t, txs[0].Payload)
	require.Equal(t, "0x1::aptos_account::transfer", txs[0].Payload.Function)

	require.False(t, txs[1].IsUser())
	require.Equal(t, uint64(0), txs[1].GasUsedValue())
}

func TestAptos_Client_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	client, err := NewClient(discardLogger(), Config{NodeURL: srv.URL})
	require.NoError(t, err)

	_, err = client.RecentTransactions(context.Background(), 10)
	require.ErrorContains(t, err, "status 429")
}
