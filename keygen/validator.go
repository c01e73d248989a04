package keygen

import (
	"fmt"

	"github.com/base-org/setup-key-generator/circuits"
)

// zeroScanLimit bounds how much of the proving key the all-zero check
// inspects. Proving keys run to gigabytes; scanning a prefix window keeps
// validation far cheaper than the synthesis it guards.
const zeroScanLimit = 1 << 16

// Validate runs the structural checks that must hold before key material is
// allowed anywhere near the artifact store. It catches synthesis and
// serialization bugs, not mathematical ones: it is a safety net, not a
// soundness proof.
func Validate(meta *circuits.Metadata, km *KeyMaterial) ValidationReport {
	fail := func(format string, args ...any) ValidationReport {
		return ValidationReport{Circuit: meta.Type, Reason: fmt.Sprintf(format, args...)}
	}

	if km.Circuit != meta.Type {
		return fail("key material is for %s, expected %s", km.Circuit, meta.Type)
	}
	if km.FormatVersion != FormatVersion {
		return fail("format version %d, store expects %d", km.FormatVersion, FormatVersion)
	}
	if len(km.ProvingKey) == 0 {
		return fail("empty proving key")
	}
	if len(km.VerifyingKey) == 0 {
		return fail("empty verification key")
	}
	if n := len(km.VerifyingKey); n < meta.MinVkBytes || n > meta.MaxVkBytes {
		return fail("verification key is %d bytes, expected %d..%d for %s",
			n, meta.MinVkBytes, meta.MaxVkBytes, meta.Type)
	}
	if allZero(km.VerifyingKey) {
		return fail("verification key is all zeroes")
	}
	if allZero(prefix(km.ProvingKey, zeroScanLimit)) {
		return fail("proving key starts with %d zero bytes", min(len(km.ProvingKey), zeroScanLimit))
	}
	if km.PkTag.IsZero() || km.VkTag.IsZero() {
		return fail("missing attempt tag")
	}
	if km.PkTag != km.VkTag {
		return fail("proving and verification keys come from different synthesis attempts")
	}

	return ValidationReport{Circuit: meta.Type, OK: true}
}

func prefix(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
