package registry

import (
	"fmt"
	"strings"
)

// Tier is the three level ordinal classification shared by colleges and cities.
// Tier1 is the strongest.
type Tier int

const (
	TierUnknown Tier = iota
	Tier1
	Tier2
	Tier3
)

// Tiers lists valid tiers in draw order.
var Tiers = []Tier{Tier1, Tier2, Tier3}

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "Tier 1"
	case Tier2:
		return "Tier 2"
	case Tier3:
		return "Tier 3"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of Tier1, Tier2, Tier3.
func (t Tier) Valid() bool {
	return t >= Tier1 && t <= Tier3
}

// ParseTier accepts "Tier 1", "tier1", "Tier1" and "1" style values.
func ParseTier(s string) (Tier, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "tier")
	v = strings.TrimSpace(strings.TrimPrefix(v, "_"))
	switch v {
	case "1":
		return Tier1, nil
	case "2":
		return Tier2, nil
	case "3":
		return Tier3, nil
	default:
		return TierUnknown, fmt.Errorf("invalid tier: %q", s)
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier: %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
