package keygen

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/consensys/gnark-crypto/kzg"
	gpugroth16 "github.com/consensys/gnark/backend/accelerated/icicle/groth16"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
	"github.com/ethereum/go-ethereum/log"

	"github.com/base-org/setup-key-generator/circuits"
)

// Synthesizer produces raw key material for a circuit type on an
// exclusively-held device. Failures are reported as *TransientError or
// *FatalError; anything else is treated as fatal.
type Synthesizer interface {
	Synthesize(ctx context.Context, meta *circuits.Metadata, device DeviceHandle) (*KeyMaterial, error)
}

// GnarkSynthesizer compiles the catalog circuit definition and runs the
// proof system's setup, on the ICICLE-accelerated backend when the leased
// device is a GPU.
type GnarkSynthesizer struct{}

func (GnarkSynthesizer) Synthesize(ctx context.Context, meta *circuits.Metadata, device DeviceHandle) (km *KeyMaterial, err error) {
	// gnark backends panic on some malformed inputs and on GPU dispatch
	// without the icicle build tag; recover those into a per-circuit
	// fatal failure instead of taking the whole run down.
	defer func() {
		if r := recover(); r != nil {
			km = nil
			err = &FatalError{
				Reason: fmt.Sprintf("panic during synthesis: %v, stack: %s", r, debug.Stack()),
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, &TransientError{Reason: "synthesis not started", Err: err}
	}

	start := time.Now()
	log.Info("Compiling circuit", "circuit", meta.Type, "curve", meta.Curve, "backend", meta.Backend, "device", device)

	var pkw, vkw io.WriterTo
	switch meta.Backend {
	case circuits.Groth16:
		pkw, vkw, err = groth16Setup(meta, device)
	case circuits.Plonk:
		pkw, vkw, err = plonkSetup(meta)
	default:
		return nil, &FatalError{Reason: fmt.Sprintf("unsupported backend %s", meta.Backend)}
	}
	if err != nil {
		return nil, err
	}

	var pkBuf, vkBuf bytes.Buffer
	if _, err := pkw.WriteTo(&pkBuf); err != nil {
		return nil, &FatalError{Reason: "serializing proving key", Err: err}
	}
	if _, err := vkw.WriteTo(&vkBuf); err != nil {
		return nil, &FatalError{Reason: "serializing verification key", Err: err}
	}

	var tag AttemptTag
	if _, err := rand.Read(tag[:]); err != nil {
		return nil, &FatalError{Reason: "generating attempt tag", Err: err}
	}

	log.Info("Synthesis complete", "circuit", meta.Type, "pkBytes", pkBuf.Len(), "vkBytes", vkBuf.Len(), "elapsed", time.Since(start))
	return &KeyMaterial{
		Circuit:       meta.Type,
		ProvingKey:    pkBuf.Bytes(),
		VerifyingKey:  vkBuf.Bytes(),
		FormatVersion: FormatVersion,
		GeneratedAt:   time.Now().UTC(),
		PkTag:         tag,
		VkTag:         tag,
	}, nil
}

func groth16Setup(meta *circuits.Metadata, device DeviceHandle) (io.WriterTo, io.WriterTo, error) {
	ccs, err := frontend.Compile(meta.Curve.ScalarField(), r1cs.NewBuilder, meta.Template())
	if err != nil {
		return nil, nil, &FatalError{Reason: "compiling circuit", Err: err}
	}

	var pk groth16.ProvingKey
	var vk groth16.VerifyingKey
	if device.Kind == GPU {
		// The ICICLE setup returns a proving key carrying the device
		// pointers the GPU prover needs; its serialized form matches
		// the plain key.
		pk, vk, err = gpugroth16.Setup(ccs)
	} else {
		pk, vk, err = groth16.Setup(ccs)
	}
	if err != nil {
		return nil, nil, classifySetupError(err, device)
	}
	return pk, vk, nil
}

func plonkSetup(meta *circuits.Metadata) (io.WriterTo, io.WriterTo, error) {
	ccs, err := frontend.Compile(meta.Curve.ScalarField(), scs.NewBuilder, meta.Template())
	if err != nil {
		return nil, nil, &FatalError{Reason: "compiling circuit", Err: err}
	}

	srs, srsLagrange, err := newSRS(ccs)
	if err != nil {
		return nil, nil, &FatalError{Reason: "building SRS", Err: err}
	}
	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, nil, classifySetupError(err, DeviceHandle{Kind: CPU})
	}
	return pk, vk, nil
}

// newSRS builds the structured reference string the PLONK setup consumes.
// TODO: load ceremony parameters from disk instead of the unsafe generator
// once the aggregation circuit's production SRS is published.
func newSRS(ccs constraint.ConstraintSystem) (srs, srsLagrange kzg.SRS, err error) {
	log.Warn("Using locally generated SRS; not suitable for production proofs")
	return unsafekzg.NewSRS(ccs)
}

// classifySetupError decides whether a setup failure is worth retrying.
// On a GPU handle, allocation and driver faults are transient: another
// attempt may land after memory pressure clears. Everything else is
// deterministic and fatal for the circuit.
func classifySetupError(err error, device DeviceHandle) error {
	if device.Kind == GPU {
		msg := strings.ToLower(err.Error())
		for _, hint := range []string{"out of memory", "oom", "cuda", "driver", "device"} {
			if strings.Contains(msg, hint) {
				return &TransientError{Reason: "device setup failure", Err: err}
			}
		}
	}
	return &FatalError{Reason: "setup failure", Err: err}
}
