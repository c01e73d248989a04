package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/base-org/setup-key-generator/circuits"
)

// PairTag binds the two halves of an artifact pair to one synthesis attempt.
type PairTag = [16]byte

// Artifacts carry a fixed-size trailer after the key payload:
//
//	payload || sha256(payload) || pair tag || payload length (uint64 BE) || magic
//
// The trailer lets ExistsValid distinguish a published artifact from
// truncated or foreign bytes without deserializing any key material, and the
// pair tag detects a proving and verification key left behind by different
// generation attempts (e.g. a crash between the two publishes of a forced
// regeneration).
var trailerMagic = [4]byte{'S', 'K', 'G', '1'}

const trailerSize = sha256.Size + 16 + 8 + len(trailerMagic)

// Location returns the canonical artifact keys for a circuit type and format
// version. Names are computed, never generated: independent processes agree
// on where a key lives without coordination.
func Location(ct circuits.CircuitType, formatVersion uint32) (pkKey, vkKey string) {
	base := fmt.Sprintf("%s.f%d", ct, formatVersion)
	return base + ".pk", base + ".vk"
}

// ArtifactStore layers the artifact naming scheme, integrity trailers and
// the write protocol over a Storage backend.
type ArtifactStore struct {
	store Storage
}

func NewArtifactStore(s Storage) *ArtifactStore {
	return &ArtifactStore{store: s}
}

// ExistsValid reports whether a complete, integrity-checked artifact pair
// from a single generation attempt is already published for the circuit. Any
// read, trailer or pair-tag problem means "not valid"; the caller
// regenerates.
func (a *ArtifactStore) ExistsValid(ct circuits.CircuitType, formatVersion uint32) (bool, error) {
	pkKey, vkKey := Location(ct, formatVersion)
	vkTag, ok := a.checkTrailer(vkKey)
	if !ok {
		return false, nil
	}
	pkTag, ok := a.checkTrailer(pkKey)
	if !ok {
		return false, nil
	}
	return pkTag == vkTag, nil
}

// Persist publishes the key pair. The verification key goes first and the
// proving key last; the shared pair tag marks the pair as one attempt's
// output. On any failure the staged bytes are discarded and the canonical
// locations keep their prior content.
func (a *ArtifactStore) Persist(ct circuits.CircuitType, formatVersion uint32, pk, vk []byte, tag PairTag) error {
	pkKey, vkKey := Location(ct, formatVersion)
	if err := a.writeArtifact(vkKey, vk, tag); err != nil {
		return fmt.Errorf("persisting %s: %w", vkKey, err)
	}
	if err := a.writeArtifact(pkKey, pk, tag); err != nil {
		return fmt.Errorf("persisting %s: %w", pkKey, err)
	}
	return nil
}

// ReadArtifact returns the verified key payloads for a published artifact
// pair, stripping and checking the trailers and the pair binding.
func (a *ArtifactStore) ReadArtifact(ct circuits.CircuitType, formatVersion uint32) (pk, vk []byte, err error) {
	pkKey, vkKey := Location(ct, formatVersion)
	vk, vkTag, err := a.readPayload(vkKey)
	if err != nil {
		return nil, nil, err
	}
	pk, pkTag, err := a.readPayload(pkKey)
	if err != nil {
		return nil, nil, err
	}
	if pkTag != vkTag {
		return nil, nil, fmt.Errorf("artifact pair for %s mixes generation attempts", ct)
	}
	return pk, vk, nil
}

func (a *ArtifactStore) writeArtifact(key string, payload []byte, tag PairTag) error {
	w, err := a.store.Writer(key)
	if err != nil {
		return err
	}
	pw := newProgressWriter(w, key, int64(len(payload))+int64(trailerSize))
	if _, err := pw.Write(payload); err != nil {
		_ = pw.Abort()
		return err
	}
	if _, err := pw.Write(trailer(payload, tag)); err != nil {
		_ = pw.Abort()
		return err
	}
	return pw.Close()
}

func (a *ArtifactStore) readPayload(key string) ([]byte, PairTag, error) {
	raw, err := a.readAll(key)
	if err != nil {
		return nil, PairTag{}, err
	}
	n, tag, ok := verifyTrailer(raw)
	if !ok {
		return nil, PairTag{}, fmt.Errorf("artifact %s is corrupt", key)
	}
	return raw[:n], tag, nil
}

// checkTrailer is the cheap idempotency probe. An unreadable artifact is
// indistinguishable from an absent one.
func (a *ArtifactStore) checkTrailer(key string) (PairTag, bool) {
	raw, err := a.readAll(key)
	if err != nil {
		return PairTag{}, false
	}
	_, tag, ok := verifyTrailer(raw)
	return tag, ok
}

func (a *ArtifactStore) readAll(key string) ([]byte, error) {
	r, err := a.store.Reader(key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func trailer(payload []byte, tag PairTag) []byte {
	sum := sha256.Sum256(payload)
	out := make([]byte, 0, trailerSize)
	out = append(out, sum[:]...)
	out = append(out, tag[:]...)
	out = binary.BigEndian.AppendUint64(out, uint64(len(payload)))
	out = append(out, trailerMagic[:]...)
	return out
}

// verifyTrailer returns the payload length, the pair tag, and whether the
// artifact bytes end in a valid trailer for that payload.
func verifyTrailer(raw []byte) (int, PairTag, bool) {
	if len(raw) < trailerSize {
		return 0, PairTag{}, false
	}
	t := raw[len(raw)-trailerSize:]
	if !bytes.Equal(t[sha256.Size+16+8:], trailerMagic[:]) {
		return 0, PairTag{}, false
	}
	n := binary.BigEndian.Uint64(t[sha256.Size+16 : sha256.Size+16+8])
	if n != uint64(len(raw)-trailerSize) {
		return 0, PairTag{}, false
	}
	sum := sha256.Sum256(raw[:n])
	if !bytes.Equal(t[:sha256.Size], sum[:]) {
		return 0, PairTag{}, false
	}
	var tag PairTag
	copy(tag[:], t[sha256.Size:sha256.Size+16])
	return int(n), tag, true
}
