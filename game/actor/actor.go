package actor

import "math"

// ObjectID is the engine-assigned unique key of a game object.
// Names are not unique, so identity is always compared by ObjectID.
type ObjectID uint32

// Kind classifies an object in the client's object table.
type Kind int

const (
	KindOther Kind = iota
	KindPlayer
	KindNPC
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	default:
		return "other"
	}
}

// Vec3 is a world-space position in yalms.
type Vec3 struct {
	X, Y, Z float32
}

// Snapshot is a read-only view of one object at scan time.
type Snapshot struct {
	ID         ObjectID
	Name       string
	Position   Vec3
	Kind       Kind
	Targetable bool
	// FreeCompanyTag holds the raw tag bytes. A nil slice means the
	// underlying character data could not be read.
	FreeCompanyTag []byte
}

// HasFreeCompany reports whether the snapshot carries a company tag.
// Unreadable data counts as affiliated.
func (s Snapshot) HasFreeCompany() bool {
	if s.FreeCompanyTag == nil {
		return true
	}
	return len(s.FreeCompanyTag) > 0 && s.FreeCompanyTag[0] != 0
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b Vec3) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// ObjectTable exposes the client's live object table.
// Snapshot must return a copy that later table mutations do not affect.
type ObjectTable interface {
	Snapshot() []Snapshot
}

// ClientState exposes the locally controlled character.
// ok is false while the player is not logged in or not yet loaded.
type ClientState interface {
	LocalPlayer() (local Snapshot, ok bool)
}
