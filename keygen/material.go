// Package keygen drives setup-key generation: it walks the circuit catalog,
// schedules synthesis on exclusively-leased compute devices, validates the
// resulting key material and hands it to the artifact store.
package keygen

import (
	"fmt"
	"time"

	"github.com/base-org/setup-key-generator/circuits"
)

// FormatVersion is the serialization format of persisted artifacts. Bump it
// whenever the artifact layout changes; artifacts of other versions are
// invisible to idempotency checks.
const FormatVersion uint32 = 1

// AttemptTag binds the proving and verification key buffers of one synthesis
// attempt together. Both halves of a KeyMaterial must carry the same tag.
type AttemptTag [16]byte

func (t AttemptTag) IsZero() bool {
	return t == AttemptTag{}
}

// KeyMaterial is the raw output of one synthesis attempt. It flows through a
// single linear pipeline (synthesize, validate, persist) and is never shared
// between circuits.
type KeyMaterial struct {
	Circuit       circuits.CircuitType
	ProvingKey    []byte
	VerifyingKey  []byte
	FormatVersion uint32
	GeneratedAt   time.Time

	// PkTag and VkTag are set from the same attempt nonce by the
	// synthesizer; a mismatch means the buffers were mixed up.
	PkTag AttemptTag
	VkTag AttemptTag
}

// ValidationReport is the result of the pre-persistence structural checks.
type ValidationReport struct {
	Circuit circuits.CircuitType
	OK      bool
	Reason  string
}

// Status classifies the outcome of one circuit's pipeline run.
type Status uint8

const (
	Generated Status = iota
	SkippedAlreadyPresent
	Failed
)

func (s Status) String() string {
	switch s {
	case Generated:
		return "generated"
	case SkippedAlreadyPresent:
		return "skipped (already present)"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", s)
	}
}

// Outcome records how one circuit's pipeline ended. Err is set only for
// Failed outcomes.
type Outcome struct {
	Circuit circuits.CircuitType
	Status  Status
	Err     error
}

// RunSummary is the final output of a run: one outcome per processed catalog
// entry, in catalog order.
type RunSummary struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that ended in failure. The run as a whole
// succeeded only if this is empty: a downstream prover needs every key.
func (s *RunSummary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.Status == Failed {
			out = append(out, o)
		}
	}
	return out
}
