package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/fleetpower/internal/domain/fleet"
)

// GemNFT reads the ERC-1155 gem collection.
type GemNFT struct {
	c *contract
}

// NewGemNFT binds the gem collection at address.
func NewGemNFT(address string, caller bind.ContractCaller) (*GemNFT, error) {
	c, err := newContract("gem", address, GemNFTABI, caller)
	if err != nil {
		return nil, err
	}
	return &GemNFT{c: c}, nil
}

// BalanceOf returns the balance of one gem kind.
func (g *GemNFT) BalanceOf(ctx context.Context, account string, kind fleet.GemKind) (uint64, error) {
	v, err := g.c.callBig(ctx, "balanceOf", common.HexToAddress(account), kind.TokenID())
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// Holding reads all three gem balances.
func (g *GemNFT) Holding(ctx context.Context, account string) (fleet.GemHolding, error) {
	var h fleet.GemHolding
	for _, kind := range fleet.GemKinds {
		n, err := g.BalanceOf(ctx, account, kind)
		if err != nil {
			return fleet.GemHolding{}, err
		}
		h = h.With(kind, n)
	}
	return h, nil
}
