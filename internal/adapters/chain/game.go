package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// NFTStatus is the result of getAllNFTsStatus. All holds every ship the
// account owns, in the wallet or staked.
type NFTStatus struct {
	All      []uint64
	Staked   []uint64
	Unstaked []uint64
}

// IsStaked reports whether tokenID is in the staked set.
func (s NFTStatus) IsStaked(tokenID uint64) bool {
	for _, id := range s.Staked {
		if id == tokenID {
			return true
		}
	}
	return false
}

// UpgradeCost is the price of raising a ship from a level to the next one.
type UpgradeCost struct {
	FromLevel uint8
	Fuel      *big.Int
	Sapphire  *big.Int
	Sunstone  *big.Int
	Lithium   *big.Int
}

// GameController reads the staking and upgrade controller.
type GameController struct {
	c *contract
}

// NewGameController binds the controller at address.
func NewGameController(address string, caller bind.ContractCaller) (*GameController, error) {
	c, err := newContract("game", address, GameControllerABI, caller)
	if err != nil {
		return nil, err
	}
	return &GameController{c: c}, nil
}

// Status returns the owned, staked and unstaked token ids of user.
func (g *GameController) Status(ctx context.Context, user string) (NFTStatus, error) {
	out, err := g.c.call(ctx, "getAllNFTsStatus", common.HexToAddress(user))
	if err != nil {
		return NFTStatus{}, err
	}
	if len(out) != 3 {
		return NFTStatus{}, fmt.Errorf("game.getAllNFTsStatus returned %d values: %w", len(out), ErrUnexpectedType)
	}
	var lists [3][]uint64
	for i := range lists {
		ids, ok := out[i].([]*big.Int)
		if !ok {
			return NFTStatus{}, fmt.Errorf("game.getAllNFTsStatus returned %T: %w", out[i], ErrUnexpectedType)
		}
		lists[i] = make([]uint64, 0, len(ids))
		for _, id := range ids {
			lists[i] = append(lists[i], id.Uint64())
		}
	}
	return NFTStatus{All: lists[0], Staked: lists[1], Unstaked: lists[2]}, nil
}

// LevelOf returns a ship's upgrade level.
func (g *GameController) LevelOf(ctx context.Context, tokenID uint64) (uint8, error) {
	return g.c.callUint8(ctx, "levelOf", tokenArg(tokenID))
}

// ImageID returns the artwork index that determines a ship's rarity.
func (g *GameController) ImageID(ctx context.Context, tokenID uint64) (uint8, error) {
	return g.c.callUint8(ctx, "getTokenImageId", tokenArg(tokenID))
}

// PendingReward returns the unclaimed FUEL of user in wei.
func (g *GameController) PendingReward(ctx context.Context, user string) (*big.Int, error) {
	return g.c.callBig(ctx, "getTotalPendingReward", common.HexToAddress(user))
}

// UpgradeCost returns what raising a ship from level costs.
func (g *GameController) UpgradeCost(ctx context.Context, level uint8) (UpgradeCost, error) {
	out, err := g.c.call(ctx, "upgradeCostForNext", level)
	if err != nil {
		return UpgradeCost{}, err
	}
	if len(out) != 4 {
		return UpgradeCost{}, fmt.Errorf("game.upgradeCostForNext returned %d values: %w", len(out), ErrUnexpectedType)
	}
	var vals [4]*big.Int
	for i := range vals {
		v, ok := out[i].(*big.Int)
		if !ok {
			return UpgradeCost{}, fmt.Errorf("game.upgradeCostForNext returned %T: %w", out[i], ErrUnexpectedType)
		}
		vals[i] = v
	}
	return UpgradeCost{FromLevel: level, Fuel: vals[0], Sapphire: vals[1], Sunstone: vals[2], Lithium: vals[3]}, nil
}
