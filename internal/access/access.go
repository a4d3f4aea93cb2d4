package access

import "github.com/scrimlol/scrim-backend/internal/rank"

// CanRead reports whether a user of the given rank may read a room gated at
// roomRank. Reading only requires rank dominance.
func CanRead(userRank, roomRank rank.Tier) bool {
	return rank.Dominates(userRank, roomRank)
}

// CanWrite additionally requires a verified identity: lower-tier users may
// browse higher rooms but cannot post until they meet the tier AND are verified.
func CanWrite(userRank, roomRank rank.Tier, verified bool) bool {
	return CanRead(userRank, roomRank) && verified
}
