package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// ShipNFT reads the ERC-721 ship collection.
type ShipNFT struct {
	c *contract
}

// NewShipNFT binds the ship collection at address.
func NewShipNFT(address string, caller bind.ContractCaller) (*ShipNFT, error) {
	c, err := newContract("ship", address, ShipNFTABI, caller)
	if err != nil {
		return nil, err
	}
	return &ShipNFT{c: c}, nil
}

// TotalSupply returns the number of minted ships.
func (s *ShipNFT) TotalSupply(ctx context.Context) (uint64, error) {
	v, err := s.c.callBig(ctx, "totalSupply")
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("ship.totalSupply %s overflows: %w", v, ErrUnexpectedType)
	}
	return v.Uint64(), nil
}

// OwnerOf returns the checksummed owner of a token.
func (s *ShipNFT) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	out, err := s.c.call(ctx, "ownerOf", tokenArg(tokenID))
	if err != nil {
		return "", err
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("ship.ownerOf returned %T: %w", out[0], ErrUnexpectedType)
	}
	if owner == (common.Address{}) {
		return "", fmt.Errorf("ship.ownerOf(%d): %w", tokenID, ErrNoSuchToken)
	}
	return owner.Hex(), nil
}

// BalanceOf returns how many ships an account holds in its wallet.
func (s *ShipNFT) BalanceOf(ctx context.Context, owner string) (uint64, error) {
	v, err := s.c.callBig(ctx, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}
