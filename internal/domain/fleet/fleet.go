// Package fleet contains the owned-asset model of a fleet game account:
// ships with rarity, level and staking state, and ERC-1155 gem balances.
package fleet

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Rarity is the coarse quality tier of a ship.
type Rarity int

const (
	Common Rarity = iota
	Rare
	Epic
	Legendary
)

// Rarities lists every tier in ascending order.
var Rarities = [...]Rarity{Common, Rare, Epic, Legendary}

func (r Rarity) String() string {
	switch r {
	case Rare:
		return "Rare"
	case Epic:
		return "Epic"
	case Legendary:
		return "Legendary"
	default:
		return "Common"
	}
}

// Normalize maps out-of-range values to Common.
func (r Rarity) Normalize() Rarity {
	if r < Common || r > Legendary {
		return Common
	}
	return r
}

// ParseRarity accepts a tier name in any case; unknown names map to Common.
func ParseRarity(s string) Rarity {
	for _, r := range Rarities {
		if strings.EqualFold(r.String(), s) {
			return r
		}
	}
	return Common
}

// MarshalJSON encodes the tier by name.
func (r Rarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Normalize().String())
}

// UnmarshalJSON accepts a tier name or its numeric value.
func (r *Rarity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*r = ParseRarity(name)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("rarity: %w", err)
	}
	*r = Rarity(n).Normalize()
	return nil
}

// RarityFromImageID buckets an image id into a rarity tier.
func RarityFromImageID(imageID int) Rarity {
	switch {
	case imageID >= 0 && imageID <= 4:
		return Common
	case imageID >= 5 && imageID <= 8:
		return Rare
	case imageID >= 9 && imageID <= 12:
		return Epic
	case imageID >= 13 && imageID <= 14:
		return Legendary
	default:
		return Common
	}
}

// Genesis batch boundary for LegacyImageID.
const (
	legacyGenesisLastToken = 20
	legacySecondBatchStart = 1787
	legacyImageCount       = 15
)

// LegacyImageID derives an image id from a token id the way early scanners
// did, without calling getTokenImageId. The two batches use different offsets
// and are kept separate:
//   - tokenID <= 20: (tokenID-1) % 15
//   - tokenID > 20:  (tokenID-1787) % 15, negative below 1787 (scores as Common)
func LegacyImageID(tokenID uint64) int {
	n := int64(tokenID)
	if tokenID <= legacyGenesisLastToken {
		return int((n - 1) % legacyImageCount)
	}
	return int((n - legacySecondBatchStart) % legacyImageCount)
}

// ShipAsset is one ship NFT as observed on chain.
type ShipAsset struct {
	TokenID uint64 `json:"token_id"`
	ImageID int    `json:"image_id"`
	Rarity  Rarity `json:"rarity"`
	Level   int    `json:"level"`
	Staked  bool   `json:"staked"`
}

// NewShip builds a ShipAsset with rarity derived from the image id.
func NewShip(tokenID uint64, imageID, level int, staked bool) ShipAsset {
	return ShipAsset{
		TokenID: tokenID,
		ImageID: imageID,
		Rarity:  RarityFromImageID(imageID),
		Level:   level,
		Staked:  staked,
	}
}

// GemKind identifies a gem by its ERC-1155 token id.
type GemKind uint8

const (
	Sapphire GemKind = 1
	Sunstone GemKind = 2
	Lithium  GemKind = 3
)

// GemKinds lists every gem kind in token id order.
var GemKinds = [...]GemKind{Sapphire, Sunstone, Lithium}

func (g GemKind) String() string {
	switch g {
	case Sapphire:
		return "Sapphire"
	case Sunstone:
		return "Sunstone"
	case Lithium:
		return "Lithium"
	default:
		return "Unknown"
	}
}

// TokenID returns the ERC-1155 id of the gem.
func (g GemKind) TokenID() *big.Int { return big.NewInt(int64(g)) }

// GemHolding is the gem balance of one account.
type GemHolding struct {
	Sapphire uint64 `json:"sapphire"`
	Sunstone uint64 `json:"sunstone"`
	Lithium  uint64 `json:"lithium"`
}

// Count returns the balance for a gem kind.
func (h GemHolding) Count(kind GemKind) uint64 {
	switch kind {
	case Sapphire:
		return h.Sapphire
	case Sunstone:
		return h.Sunstone
	case Lithium:
		return h.Lithium
	default:
		return 0
	}
}

// With returns a copy with the balance of kind replaced.
func (h GemHolding) With(kind GemKind, n uint64) GemHolding {
	switch kind {
	case Sapphire:
		h.Sapphire = n
	case Sunstone:
		h.Sunstone = n
	case Lithium:
		h.Lithium = n
	}
	return h
}

// Snapshot is the owned-asset view of an account at FetchedAt.
// Callers must treat it as immutable.
type Snapshot struct {
	Address       string      `json:"address"`
	Ships         []ShipAsset `json:"ships"`
	Gems          GemHolding  `json:"gems"`
	PendingReward *big.Int    `json:"pending_reward,omitempty"`
	FetchedAt     time.Time   `json:"fetched_at"`
}

// StakedCount returns how many ships are staked.
func (s Snapshot) StakedCount() int {
	n := 0
	for _, ship := range s.Ships {
		if ship.Staked {
			n++
		}
	}
	return n
}
