package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every request with result(req).
func rpcServer(t *testing.T, method string, result func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if method != "" {
			assert.Equal(t, method, req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result(req),
		})
	}))
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := rpcServer(t, "getTransaction", func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"slot":      int64(123456),
			"blockTime": int64(1700000000),
			"meta": map[string]interface{}{
				"err":         nil,
				"fee":         5000,
				"logMessages": []string{"Program log: Hello"},
				"preTokenBalances": []map[string]interface{}{
					{"accountIndex": 1, "mint": "mintA", "owner": "wallet",
						"uiTokenAmount": map[string]interface{}{"amount": "1500000", "decimals": 6}},
				},
				"postTokenBalances": []map[string]interface{}{},
				"innerInstructions": []map[string]interface{}{
					{"index": 0, "instructions": []map[string]interface{}{
						{
							"program":   "spl-token",
							"programId": TokenProgramID,
							"parsed": map[string]interface{}{
								"type": "transferChecked",
								"info": map[string]interface{}{
									"source": "src", "destination": "dst", "authority": "auth", "mint": "mintA",
									"tokenAmount": map[string]interface{}{"amount": "42", "decimals": 6},
								},
							},
						},
						{"programId": "MemoProgram", "parsed": "hello"},
					}},
				},
			},
			"transaction": map[string]interface{}{
				"message": map[string]interface{}{
					"accountKeys": []map[string]interface{}{
						{"pubkey": "addr1", "signer": true}, {"pubkey": "addr2"},
					},
					"instructions": []map[string]interface{}{
						{"programId": "prog1", "accounts": []string{"addr1", "addr2"}, "data": "abc"},
					},
				},
			},
		}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "testsig123")
	require.NoError(t, err)
	require.NotNil(t, tx)

	assert.Equal(t, int64(123456), tx.Slot)
	assert.Equal(t, int64(1700000000), tx.BlockTime)
	assert.Equal(t, "testsig123", tx.Signature)
	assert.False(t, tx.Failed())

	require.NotNil(t, tx.Meta)
	assert.Equal(t, uint64(5000), tx.Meta.Fee)
	require.Len(t, tx.Meta.PreTokenBalances, 1)
	assert.Equal(t, "1.5", tx.Meta.PreTokenBalances[0].Amount.UIAmount().String())

	require.Len(t, tx.InnerInstructions(), 1)
	inner := tx.InnerInstructions()[0].Instructions
	require.Len(t, inner, 2)
	assert.True(t, inner[0].IsTokenTransfer())
	assert.Equal(t, "42", inner[0].Parsed.Info.RawAmount())
	assert.Equal(t, "auth", inner[0].Parsed.Info.Authority)
	assert.Nil(t, inner[1].Parsed)

	require.NotNil(t, tx.Message)
	assert.Equal(t, []string{"addr1", "addr2"}, tx.Message.AccountKeys)
	require.Len(t, tx.Instructions(), 1)
	assert.Equal(t, "prog1", tx.Instructions()[0].ProgramID)
	assert.Equal(t, []string{"addr1", "addr2"}, tx.Instructions()[0].Accounts)
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := rpcServer(t, "getTransaction", func(rpcRequest) interface{} { return nil })
	defer server.Close()

	tx, err := NewHTTPClient(server.URL).GetTransaction(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID, "result": "5sig",
		})
	}))
	defer server.Close()

	var observed atomic.Int32
	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
		WithObserver(func(method string, _ time.Duration, err error) {
			assert.Equal(t, "sendTransaction", method)
			assert.NoError(t, err)
			observed.Add(1)
		}),
	)

	sig, err := client.SendTransaction(context.Background(), "AQID")
	require.NoError(t, err)
	assert.Equal(t, "5sig", sig)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(1), observed.Load())
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32600, "message": "Invalid Request"},
		})
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "x")
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)
	assert.Equal(t, int32(1), attempts.Load(), "node errors are not retried")
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := rpcServer(t, "getAccountInfo", func(rpcRequest) interface{} {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"lamports":   uint64(1000000),
				"owner":      SystemProgramID,
				"data":       []string{base64.StdEncoding.EncodeToString([]byte("Hello World")), "base64"},
				"executable": false,
			},
		}
	})
	defer server.Close()

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "testpubkey")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, uint64(1000000), info.Lamports)
	assert.Equal(t, SystemProgramID, info.Owner)
	assert.Equal(t, []byte("Hello World"), info.Data)
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := rpcServer(t, "getAccountInfo", func(rpcRequest) interface{} {
		return map[string]interface{}{"value": nil}
	})
	defer server.Close()

	info, err := NewHTTPClient(server.URL).GetAccountInfo(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestHTTPClient_GetMultipleAccounts_Batches(t *testing.T) {
	var calls atomic.Int32
	server := rpcServer(t, "getMultipleAccounts", func(req rpcRequest) interface{} {
		calls.Add(1)
		keys := req.Params[0].([]interface{})
		values := make([]interface{}, len(keys))
		for i, k := range keys {
			if k.(string) == "missing" {
				continue
			}
			values[i] = map[string]interface{}{
				"lamports": 1,
				"owner":    k,
				"data":     []string{"", "base64"},
			}
		}
		return map[string]interface{}{"value": values}
	})
	defer server.Close()

	keys := make([]string, 150)
	for i := range keys {
		keys[i] = "acct"
	}
	keys[120] = "missing"

	infos, err := NewHTTPClient(server.URL).GetMultipleAccounts(context.Background(), keys)
	require.NoError(t, err)
	require.Len(t, infos, 150)
	assert.Equal(t, int32(2), calls.Load())
	assert.Nil(t, infos[120])
	assert.Equal(t, "acct", infos[0].Owner)
	assert.Empty(t, infos[0].Data)
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(server.URL).GetTransaction(ctx, "sig")
	require.Error(t, err)
}
