package keygen

import (
	"bytes"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/ethereum/go-ethereum/log"

	"github.com/base-org/setup-key-generator/circuits"
)

// Key is the common surface of gnark proving and verification keys: binary
// round-tripping. Both the Groth16 and PLONK key types satisfy it.
type Key interface {
	io.ReaderFrom
	io.WriterTo
}

// ArtifactReader reads back a published, trailer-verified artifact pair.
// Implemented by storage.ArtifactStore.
type ArtifactReader interface {
	ReadArtifact(ct circuits.CircuitType, formatVersion uint32) (pk, vk []byte, err error)
}

// Load deserializes a published artifact pair into typed keys for the
// circuit's backend and curve. It is a deep check: every curve point is
// decoded, so a pair that Loads is usable by a prover.
func Load(store ArtifactReader, meta *circuits.Metadata) (Key, Key, error) {
	pkBytes, vkBytes, err := store.ReadArtifact(meta.Type, FormatVersion)
	if err != nil {
		return nil, nil, err
	}
	return DecodeKeys(meta, pkBytes, vkBytes)
}

// DecodeKeys deserializes raw key payloads into typed keys.
func DecodeKeys(meta *circuits.Metadata, pkBytes, vkBytes []byte) (Key, Key, error) {
	var pk, vk Key
	switch meta.Backend {
	case circuits.Groth16:
		pk = groth16.NewProvingKey(meta.Curve)
		vk = groth16.NewVerifyingKey(meta.Curve)
	case circuits.Plonk:
		pk = plonk.NewProvingKey(meta.Curve)
		vk = plonk.NewVerifyingKey(meta.Curve)
	default:
		return nil, nil, fmt.Errorf("unsupported backend %s", meta.Backend)
	}

	log.Info("Decoding verification key", "circuit", meta.Type, "bytes", len(vkBytes))
	if _, err := vk.ReadFrom(bytes.NewReader(vkBytes)); err != nil {
		return nil, nil, fmt.Errorf("decoding verification key for %s: %w", meta.Type, err)
	}
	log.Info("Decoding proving key", "circuit", meta.Type, "bytes", len(pkBytes))
	if _, err := pk.ReadFrom(bytes.NewReader(pkBytes)); err != nil {
		return nil, nil, fmt.Errorf("decoding proving key for %s: %w", meta.Type, err)
	}
	return pk, vk, nil
}
