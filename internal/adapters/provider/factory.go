package provider

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/okian/fleetpower/internal/adapters/chain"
	"github.com/okian/fleetpower/internal/config"
)

// New builds the provider named by cfg.Provider. caller is only used by the
// chain-backed providers and may be nil for mock.
func New(cfg *config.Config, caller bind.ContractCaller) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		return NewMock(), nil
	case config.ProviderTest, config.ProviderLive:
		r, err := NewChainReader(cfg, caller)
		if err != nil {
			return nil, err
		}
		if cfg.Provider == config.ProviderTest {
			return NewSingle(r, cfg.TestAddress), nil
		}
		return NewLive(r, cfg.ScanLimit, cfg.BatchSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// NewChainReader binds the configured contracts and builds a Reader.
func NewChainReader(cfg *config.Config, caller bind.ContractCaller) (*Reader, error) {
	if caller == nil {
		return nil, ErrNoChain
	}
	ship, err := chain.NewShipNFT(cfg.ShipContract, caller)
	if err != nil {
		return nil, err
	}
	game, err := chain.NewGameController(cfg.GameContract, caller)
	if err != nil {
		return nil, err
	}
	opts := []ReaderOption{
		WithImageSource(cfg.ImageSource),
		WithRate(cfg.RPCRatePerSec),
		WithConcurrency(cfg.BatchSize),
	}
	if cfg.IncludeGems {
		gem, err := chain.NewGemNFT(cfg.GemContract, caller)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithGems(gem))
	}
	return NewReader(ship, game, opts...), nil
}
