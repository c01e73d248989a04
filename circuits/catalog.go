// Package circuits defines the fixed, versioned catalog of circuit types
// that require a setup key. The catalog is pure data: adding, removing or
// resizing a circuit is a catalog version change, never a runtime decision.
package circuits

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
)

// Backend selects the proof system a circuit's keys are generated for.
type Backend uint8

const (
	Groth16 Backend = iota
	Plonk
)

func (b Backend) String() string {
	switch b {
	case Groth16:
		return "groth16"
	case Plonk:
		return "plonk"
	default:
		return fmt.Sprintf("backend(%d)", b)
	}
}

// CircuitType identifies one catalog entry. It is the key for everything
// downstream: artifact names, run outcomes, idempotency checks.
type CircuitType struct {
	Family    string
	SizeClass uint32
	Version   uint32
}

// String returns the canonical form used in logs and artifact names,
// e.g. "transfer-k12-v1".
func (ct CircuitType) String() string {
	return fmt.Sprintf("%s-k%d-v%d", ct.Family, ct.SizeClass, ct.Version)
}

// Metadata describes one circuit type: its identity, the curve and proof
// system its keys target, the expected size range of a serialized
// verification key, and a template constructor for the circuit definition.
// Template returns a fresh value on every call; compiled constraint systems
// must never share frontend state.
type Metadata struct {
	Type       CircuitType
	Curve      ecc.ID
	Backend    Backend
	MinVkBytes int
	MaxVkBytes int
	Template   func() frontend.Circuit
}

// Base circuits prove on BLS12-377 so their proofs can be aggregated
// in-circuit on BW6-761, the curve pair the recursion layer is built on.
var (
	TransferSmall = &Metadata{
		Type:       CircuitType{Family: "transfer", SizeClass: 12, Version: 1},
		Curve:      ecc.BLS12_377,
		Backend:    Groth16,
		MinVkBytes: 128,
		MaxVkBytes: 1 << 20,
		Template:   func() frontend.Circuit { return newHashChainCircuit(1 << 4) },
	}

	TransferLarge = &Metadata{
		Type:       CircuitType{Family: "transfer", SizeClass: 16, Version: 1},
		Curve:      ecc.BLS12_377,
		Backend:    Groth16,
		MinVkBytes: 128,
		MaxVkBytes: 1 << 20,
		Template:   func() frontend.Circuit { return newHashChainCircuit(1 << 8) },
	}

	StateUpdate = &Metadata{
		Type:       CircuitType{Family: "state-update", SizeClass: 14, Version: 1},
		Curve:      ecc.BLS12_377,
		Backend:    Groth16,
		MinVkBytes: 128,
		MaxVkBytes: 1 << 20,
		Template:   func() frontend.Circuit { return newMerkleUpdateCircuit(16) },
	}

	Aggregation = &Metadata{
		Type:       CircuitType{Family: "aggregation", SizeClass: 18, Version: 1},
		Curve:      ecc.BW6_761,
		Backend:    Plonk,
		MinVkBytes: 128,
		MaxVkBytes: 4 << 20,
		Template:   func() frontend.Circuit { return newDigestFoldCircuit(8) },
	}
)

// catalog order is declaration order and is part of the catalog version:
// it fixes log ordering, run summaries and resumability by index.
var catalog = []*Metadata{
	TransferSmall,
	TransferLarge,
	StateUpdate,
	Aggregation,
}

// Catalog returns every circuit type requiring a setup key, in a
// deterministic order stable across runs and platforms.
func Catalog() []*Metadata {
	out := make([]*Metadata, len(catalog))
	copy(out, catalog)
	return out
}

// ByName looks up a catalog entry by its canonical name.
func ByName(name string) (*Metadata, bool) {
	for _, m := range catalog {
		if m.Type.String() == name {
			return m, true
		}
	}
	return nil, false
}

// Subset resolves a caller-supplied filter against the catalog, preserving
// catalog order regardless of the order names were given in. An empty filter
// selects the whole catalog. A name not present in the catalog is a
// configuration error and aborts before any work starts.
func Subset(names []string) ([]*Metadata, error) {
	if len(names) == 0 {
		return Catalog(), nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := ByName(n); !ok {
			return nil, fmt.Errorf("unknown circuit type %q", n)
		}
		wanted[n] = true
	}
	var out []*Metadata
	for _, m := range catalog {
		if wanted[m.Type.String()] {
			out = append(out, m)
		}
	}
	return out, nil
}
