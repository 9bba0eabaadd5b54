package simulator

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Provider sends raw JSON-RPC requests to the running chain over HTTP.
type Provider struct {
	client *rpc.Client
}

// Request calls method with params and returns the raw result.
func (p *Provider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := p.client.CallContext(ctx, &result, method, params...); err != nil {
		return nil, err
	}
	return result, nil
}

// Accounts calls eth_accounts.
func (p *Provider) Accounts(ctx context.Context) ([]common.Address, error) {
	var out []common.Address
	if err := p.client.CallContext(ctx, &out, "eth_accounts"); err != nil {
		return nil, err
	}
	return out, nil
}
