package stub

import (
	"context"
	"sync"

	"solana-copy-trader/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu           sync.Mutex
	transactions map[string]*solana.Transaction
	accounts     map[string]*solana.AccountInfo
	sent         []string

	// SendFunc, when set, handles SendTransaction.
	SendFunc func(txBase64 string) (string, error)
	// Err, when set, is returned by every call.
	Err error
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		transactions: make(map[string]*solana.Transaction),
		accounts:     make(map[string]*solana.AccountInfo),
	}
}

// GetTransaction returns a stored transaction or (nil, nil).
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.transactions[signature], nil
}

// GetAccountInfo returns a stored account or (nil, nil).
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	return c.accounts[pubkey], nil
}

// GetMultipleAccounts returns stored accounts in request order.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := make([]*solana.AccountInfo, len(pubkeys))
	for i, k := range pubkeys {
		out[i] = c.accounts[k]
	}
	return out, nil
}

// SendTransaction records the payload and delegates to SendFunc.
func (c *RPCClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	c.mu.Lock()
	if c.Err != nil {
		c.mu.Unlock()
		return "", c.Err
	}
	c.sent = append(c.sent, txBase64)
	send := c.SendFunc
	c.mu.Unlock()

	if send != nil {
		return send(txBase64)
	}
	return "stub-signature", nil
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	c.transactions[tx.Signature] = tx
	c.mu.Unlock()
}

// SetAccount stores account data under pubkey.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	c.accounts[pubkey] = info
	c.mu.Unlock()
}

// Sent returns the broadcast payloads.
func (c *RPCClient) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}
