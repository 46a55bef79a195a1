// Package ids provides the opaque identifier vocabulary shared across the
// generator: user, location, building, and room IDs, plus the closed
// enumerations (room type, security level, activity type, event type,
// failure reason) that tag the values flowing through the pipeline.
package ids

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Kind tags which entity an ID refers to; its value is the ID's type
// prefix on the wire.
type Kind string

const (
	KindUser     Kind = "USER"
	KindLocation Kind = "LOC"
	KindBuilding Kind = "BLD"
	KindRoom     Kind = "ROOM"
)

// ID is an opaque, globally unique identifier. Equality is defined over
// the raw hex payload only (no ordering is defined); the Kind is carried for
// prefix-emitting serialization and is not significant to equality beyond
// what the hex payload already guarantees (IDs are generated per-Kind from
// independent randomness, so cross-Kind collisions are not a concern this
// type needs to defend against).
type ID struct {
	kind Kind
	hex  string
}

// New generates a fresh random ID of the given kind.
func New(kind Kind) ID {
	u := uuid.New()
	return ID{kind: kind, hex: hex.EncodeToString(u[:])}
}

// Kind returns the identifier's entity kind.
func (i ID) Kind() Kind { return i.kind }

// String renders the identifier in its prefix-emitting wire form, e.g.
// "USER_4f3c9a...".
func (i ID) String() string {
	if i.hex == "" {
		return ""
	}
	return string(i.kind) + "_" + i.hex
}

// IsZero reports whether the ID was never assigned.
func (i ID) IsZero() bool { return i.hex == "" }

// Equal reports whether two IDs refer to the same entity.
func (i ID) Equal(other ID) bool { return i.hex == other.hex }

// Parse reconstructs an ID of the given kind from its wire form. Parse is
// prefix-tolerant: it accepts both "KIND_<hex>" and bare "<hex>" (the
// legacy, pre-prefix form), per the data model's backward-compatibility
// requirement.
func Parse(kind Kind, s string) ID {
	prefix := string(kind) + "_"
	if strings.HasPrefix(s, prefix) {
		return ID{kind: kind, hex: s[len(prefix):]}
	}
	return ID{kind: kind, hex: s}
}
