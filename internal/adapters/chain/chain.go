// Package chain wraps the read-only contract calls the service makes.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/okian/fleetpower/pkg/metrics"
)

// Dial connects to a JSON-RPC endpoint. The returned client is a bind.ContractCaller.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return client, nil
}

// Contracts groups the three bindings the snapshot reader needs.
type Contracts struct {
	Ship *ShipNFT
	Game *GameController
	Gem  *GemNFT
}

// Bind creates all three bindings on one caller.
func Bind(caller bind.ContractCaller, ship, game, gem string) (*Contracts, error) {
	s, err := NewShipNFT(ship, caller)
	if err != nil {
		return nil, err
	}
	g, err := NewGameController(game, caller)
	if err != nil {
		return nil, err
	}
	gm, err := NewGemNFT(gem, caller)
	if err != nil {
		return nil, err
	}
	return &Contracts{Ship: s, Game: g, Gem: gm}, nil
}

// contract is a named bound contract that records call metrics.
type contract struct {
	name    string
	address common.Address
	bound   *bind.BoundContract
}

func newContract(name, address, abiJSON string, caller bind.ContractCaller) (*contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%s %q: %w", name, address, ErrInvalidContract)
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse %s abi: %w", name, err)
	}
	addr := common.HexToAddress(address)
	return &contract{
		name:    name,
		address: addr,
		bound:   bind.NewBoundContract(addr, parsed, caller, nil, nil),
	}, nil
}

func (c *contract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	start := time.Now()
	var out []interface{}
	err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
	metrics.RecordChainCall(c.name, method, float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, ErrEmptyResult)
	}
	return out, nil
}

func (c *contract) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s.%s returned %T: %w", c.name, method, out[0], ErrUnexpectedType)
	}
	return v, nil
}

func (c *contract) callUint8(ctx context.Context, method string, args ...interface{}) (uint8, error) {
	out, err := c.call(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("%s.%s returned %T: %w", c.name, method, out[0], ErrUnexpectedType)
	}
	return v, nil
}

func tokenArg(id uint64) *big.Int { return new(big.Int).SetUint64(id) }
