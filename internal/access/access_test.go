package access

import (
	"testing"

	"github.com/scrimlol/scrim-backend/internal/rank"
)

func TestCanRead(t *testing.T) {
	cases := []struct {
		name     string
		userRank rank.Tier
		roomRank rank.Tier
		want     bool
	}{
		{"same tier reads", rank.Gold, rank.Gold, true},
		{"higher tier reads lower room", rank.Diamond, rank.Silver, true},
		{"lower tier cannot read gated room", rank.Silver, rank.Gold, false},
		{"challenger reads everything", rank.Challenger, rank.Grandmaster, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanRead(tc.userRank, tc.roomRank); got != tc.want {
				t.Fatalf("CanRead(%s, %s) = %v, want %v", tc.userRank, tc.roomRank, got, tc.want)
			}
		})
	}
}

func TestCanWriteRequiresDominanceAndVerification(t *testing.T) {
	cases := []struct {
		name     string
		userRank rank.Tier
		roomRank rank.Tier
		verified bool
		want     bool
	}{
		{"silver unverified in gold room", rank.Silver, rank.Gold, false, false},
		{"silver verified in gold room", rank.Silver, rank.Gold, true, false},
		{"gold unverified in gold room", rank.Gold, rank.Gold, false, false},
		{"gold verified in gold room", rank.Gold, rank.Gold, true, true},
		{"diamond verified in iron room", rank.Diamond, rank.Iron, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanWrite(tc.userRank, tc.roomRank, tc.verified); got != tc.want {
				t.Fatalf("CanWrite(%s, %s, %v) = %v, want %v",
					tc.userRank, tc.roomRank, tc.verified, got, tc.want)
			}
		})
	}
}
