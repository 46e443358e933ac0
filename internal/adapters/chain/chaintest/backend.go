// Package chaintest provides an in-process contract backend for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/fleetpower/internal/adapters/chain"
)

// Fixed contract addresses used by World.
const (
	ShipAddress = "0x00000000000000000000000000000000000005A1"
	GameAddress = "0x00000000000000000000000000000000000006A2"
	GemAddress  = "0x00000000000000000000000000000000000007A3"
)

// ErrReverted is returned for calls the fake contract rejects.
var ErrReverted = errors.New("execution reverted")

// Handler answers one contract method with already decoded arguments.
type Handler func(args []interface{}) ([]interface{}, error)

type stub struct {
	abi      abi.ABI
	handlers map[string]Handler
}

// Backend implements bind.ContractCaller by dispatching calls to Go handlers.
type Backend struct {
	mu        sync.RWMutex
	contracts map[common.Address]*stub
	calls     atomic.Int64
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{contracts: make(map[common.Address]*stub)}
}

// Register deploys a fake contract at address.
func (b *Backend) Register(address, abiJSON string, handlers map[string]Handler) error {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contracts[common.HexToAddress(address)] = &stub{abi: parsed, handlers: handlers}
	return nil
}

// Calls returns how many contract calls were served.
func (b *Backend) Calls() int64 { return b.calls.Load() }

// CodeAt implements bind.ContractCaller.
func (b *Backend) CodeAt(_ context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.contracts[contract]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// CallContract implements bind.ContractCaller.
func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.calls.Add(1)

	if msg.To == nil || len(msg.Data) < 4 {
		return nil, ErrReverted
	}
	b.mu.RLock()
	s, ok := b.contracts[*msg.To]
	b.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	method, err := s.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	h, ok := s.handlers[method.Name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", method.Name, ErrReverted)
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

// Ship is one token in a World.
type Ship struct {
	Owner   string
	ImageID uint8
	Level   uint8
	Staked  bool
}

// World is a small game state served through a Backend.
type World struct {
	mu      sync.Mutex
	ships   map[uint64]Ship
	gems    map[common.Address][3]uint64
	rewards map[common.Address]*big.Int
	broken  map[uint64]bool
	supply  uint64
}

// NewWorld returns an empty world.
func NewWorld() *World {
	return &World{
		ships:   make(map[uint64]Ship),
		gems:    make(map[common.Address][3]uint64),
		rewards: make(map[common.Address]*big.Int),
		broken:  make(map[uint64]bool),
	}
}

// Mint adds a ship and grows the supply to cover it.
func (w *World) Mint(tokenID uint64, s Ship) *World {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ships[tokenID] = s
	if tokenID > w.supply {
		w.supply = tokenID
	}
	return w
}

// SetGems sets the gem balances of owner.
func (w *World) SetGems(owner string, sapphire, sunstone, lithium uint64) *World {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gems[common.HexToAddress(owner)] = [3]uint64{sapphire, sunstone, lithium}
	return w
}

// SetReward sets the pending FUEL of owner.
func (w *World) SetReward(owner string, wei *big.Int) *World {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rewards[common.HexToAddress(owner)] = wei
	return w
}

// Break makes ownerOf revert for tokenID.
func (w *World) Break(tokenID uint64) *World {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.broken[tokenID] = true
	return w
}

// SetSupply overrides totalSupply.
func (w *World) SetSupply(n uint64) *World {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.supply = n
	return w
}

// Backend deploys the three game contracts at the fixed addresses.
func (w *World) Backend() (*Backend, error) {
	b := NewBackend()
	if err := b.Register(ShipAddress, chain.ShipNFTABI, w.shipHandlers()); err != nil {
		return nil, err
	}
	if err := b.Register(GameAddress, chain.GameControllerABI, w.gameHandlers()); err != nil {
		return nil, err
	}
	if err := b.Register(GemAddress, chain.GemNFTABI, w.gemHandlers()); err != nil {
		return nil, err
	}
	return b, nil
}

// Contracts binds all three contracts against a fresh backend.
func (w *World) Contracts() (*chain.Contracts, *Backend, error) {
	b, err := w.Backend()
	if err != nil {
		return nil, nil, err
	}
	c, err := chain.Bind(b, ShipAddress, GameAddress, GemAddress)
	if err != nil {
		return nil, nil, err
	}
	return c, b, nil
}

func (w *World) shipHandlers() map[string]Handler {
	return map[string]Handler{
		"totalSupply": func([]interface{}) ([]interface{}, error) {
			w.mu.Lock()
			defer w.mu.Unlock()
			return []interface{}{new(big.Int).SetUint64(w.supply)}, nil
		},
		"ownerOf": func(args []interface{}) ([]interface{}, error) {
			id := args[0].(*big.Int).Uint64()
			w.mu.Lock()
			defer w.mu.Unlock()
			s, ok := w.ships[id]
			if !ok || w.broken[id] {
				return nil, ErrReverted
			}
			return []interface{}{common.HexToAddress(s.Owner)}, nil
		},
		"balanceOf": func(args []interface{}) ([]interface{}, error) {
			owner := args[0].(common.Address)
			w.mu.Lock()
			defer w.mu.Unlock()
			var n int64
			for _, s := range w.ships {
				if common.HexToAddress(s.Owner) == owner && !s.Staked {
					n++
				}
			}
			return []interface{}{big.NewInt(n)}, nil
		},
	}
}

func (w *World) gameHandlers() map[string]Handler {
	token := func(args []interface{}) (Ship, error) {
		id := args[0].(*big.Int).Uint64()
		w.mu.Lock()
		defer w.mu.Unlock()
		s, ok := w.ships[id]
		if !ok {
			return Ship{}, ErrReverted
		}
		return s, nil
	}
	return map[string]Handler{
		"getAllNFTsStatus": func(args []interface{}) ([]interface{}, error) {
			user := args[0].(common.Address)
			w.mu.Lock()
			ids := make([]uint64, 0)
			for id, s := range w.ships {
				if common.HexToAddress(s.Owner) == user {
					ids = append(ids, id)
				}
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			all := make([]*big.Int, 0, len(ids))
			staked := make([]*big.Int, 0)
			unstaked := make([]*big.Int, 0)
			for _, id := range ids {
				v := new(big.Int).SetUint64(id)
				all = append(all, v)
				if w.ships[id].Staked {
					staked = append(staked, v)
				} else {
					unstaked = append(unstaked, v)
				}
			}
			w.mu.Unlock()
			return []interface{}{all, staked, unstaked}, nil
		},
		"levelOf": func(args []interface{}) ([]interface{}, error) {
			s, err := token(args)
			if err != nil {
				return nil, err
			}
			return []interface{}{s.Level}, nil
		},
		"getTokenImageId": func(args []interface{}) ([]interface{}, error) {
			s, err := token(args)
			if err != nil {
				return nil, err
			}
			return []interface{}{s.ImageID}, nil
		},
		"getTotalPendingReward": func(args []interface{}) ([]interface{}, error) {
			user := args[0].(common.Address)
			w.mu.Lock()
			defer w.mu.Unlock()
			r, ok := w.rewards[user]
			if !ok {
				r = new(big.Int)
			}
			return []interface{}{r}, nil
		},
		"upgradeCostForNext": func(args []interface{}) ([]interface{}, error) {
			level := args[0].(uint8)
			if level < 1 || level > 4 {
				return nil, ErrReverted
			}
			// FUEL grows 100, 200, 300, 400 tokens; each gem kind needs level-many.
			fuel := new(big.Int).Mul(big.NewInt(int64(level)*100), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
			gems := big.NewInt(int64(level))
			return []interface{}{fuel, gems, gems, gems}, nil
		},
	}
}

func (w *World) gemHandlers() map[string]Handler {
	return map[string]Handler{
		"balanceOf": func(args []interface{}) ([]interface{}, error) {
			owner := args[0].(common.Address)
			id := args[1].(*big.Int).Int64()
			if id < 1 || id > 3 {
				return []interface{}{new(big.Int)}, nil
			}
			w.mu.Lock()
			defer w.mu.Unlock()
			return []interface{}{new(big.Int).SetUint64(w.gems[owner][id-1])}, nil
		},
	}
}
