package rank

import "errors"

var ErrUnknownTier = errors.New("unknown tier")

type Tier string

const (
	Iron        Tier = "IRON"
	Bronze      Tier = "BRONZE"
	Silver      Tier = "SILVER"
	Gold        Tier = "GOLD"
	Platinum    Tier = "PLATINUM"
	Emerald     Tier = "EMERALD"
	Diamond     Tier = "DIAMOND"
	Master      Tier = "MASTER"
	Grandmaster Tier = "GRANDMASTER"
	Challenger  Tier = "CHALLENGER"
)

// TierOrder is the fixed ladder, lowest to highest. Levels are indexes into it.
var TierOrder = []Tier{
	Iron,
	Bronze,
	Silver,
	Gold,
	Platinum,
	Emerald,
	Diamond,
	Master,
	Grandmaster,
	Challenger,
}

var levels = func() map[Tier]int {
	m := make(map[Tier]int, len(TierOrder))
	for i, t := range TierOrder {
		m[t] = i
	}
	return m
}()

// Level returns the tier's position on the ladder (IRON=0 ... CHALLENGER=9).
// ok is false for a tier that isn't on the ladder.
func Level(t Tier) (int, bool) {
	lvl, ok := levels[t]
	return lvl, ok
}

// Dominates reports whether a sits at or above b on the ladder.
// Unknown tiers never dominate anything.
func Dominates(a, b Tier) bool {
	la, oka := levels[a]
	lb, okb := levels[b]
	return oka && okb && la >= lb
}

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := levels[t]; !ok {
		return "", ErrUnknownTier
	}
	return t, nil
}
