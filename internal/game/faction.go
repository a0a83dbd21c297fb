package game

import "strconv"

// FactionKind is the side a player fights for.
type FactionKind string

const (
	FactionCrane FactionKind = "crane"
	FactionLotus FactionKind = "lotus"
	FactionRonin FactionKind = "ronin"
)

// Faction is a dealt faction card. Crane and Lotus cards carry a pairing
// index starting at 1; Ronin has none.
type Faction struct {
	Kind  FactionKind
	Index int
}

func Crane(n int) Faction { return Faction{Kind: FactionCrane, Index: n} }
func Lotus(n int) Faction { return Faction{Kind: FactionLotus, Index: n} }
func Ronin() Faction      { return Faction{Kind: FactionRonin} }

// String returns the stored form: "crane1", "lotus2", "ronin".
func (f Faction) String() string {
	if f.Kind == FactionRonin {
		return string(FactionRonin)
	}
	return string(f.Kind) + strconv.Itoa(f.Index)
}
