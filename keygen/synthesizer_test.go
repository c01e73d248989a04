package keygen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/base-org/setup-key-generator/circuits"
)

func TestGnarkSynthesizerGroth16(t *testing.T) {
	if testing.Short() {
		t.Skip("key synthesis is expensive")
	}
	meta := circuits.TransferSmall
	km, err := GnarkSynthesizer{}.Synthesize(context.Background(), meta, DeviceHandle{Kind: CPU})
	require.NoError(t, err)

	report := Validate(meta, km)
	require.True(t, report.OK, "reason: %s", report.Reason)
	assert.Equal(t, meta.Type, km.Circuit)
	assert.Equal(t, km.PkTag, km.VkTag)

	// the serialized keys must decode back into usable typed keys
	pk, vk, err := DecodeKeys(meta, km.ProvingKey, km.VerifyingKey)
	require.NoError(t, err)
	assert.NotNil(t, pk)
	assert.NotNil(t, vk)
}

func TestGnarkSynthesizerPlonk(t *testing.T) {
	if testing.Short() {
		t.Skip("key synthesis is expensive")
	}
	meta := circuits.Aggregation
	km, err := GnarkSynthesizer{}.Synthesize(context.Background(), meta, DeviceHandle{Kind: CPU})
	require.NoError(t, err)

	report := Validate(meta, km)
	require.True(t, report.OK, "reason: %s", report.Reason)

	_, _, err = DecodeKeys(meta, km.ProvingKey, km.VerifyingKey)
	require.NoError(t, err)
}

func TestGnarkSynthesizerDistinctAttemptsGetDistinctTags(t *testing.T) {
	if testing.Short() {
		t.Skip("key synthesis is expensive")
	}
	meta := circuits.TransferSmall
	first, err := GnarkSynthesizer{}.Synthesize(context.Background(), meta, DeviceHandle{Kind: CPU})
	require.NoError(t, err)
	second, err := GnarkSynthesizer{}.Synthesize(context.Background(), meta, DeviceHandle{Kind: CPU})
	require.NoError(t, err)
	assert.NotEqual(t, first.PkTag, second.PkTag)
}

func TestGnarkSynthesizerCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GnarkSynthesizer{}.Synthesize(ctx, circuits.TransferSmall, DeviceHandle{Kind: CPU})
	require.Error(t, err)
	var transient *TransientError
	assert.ErrorAs(t, err, &transient)
}

func TestClassifySetupError(t *testing.T) {
	gpu := DeviceHandle{Kind: GPU, Ordinal: 0}
	cpu := DeviceHandle{Kind: CPU, Ordinal: 0}

	var transient *TransientError
	var fatal *FatalError

	err := classifySetupError(errDummy("CUDA out of memory"), gpu)
	assert.ErrorAs(t, err, &transient)

	err = classifySetupError(errDummy("driver shutting down"), gpu)
	assert.ErrorAs(t, err, &transient)

	// deterministic setup errors never deserve a retry
	err = classifySetupError(errDummy("invalid srs size"), gpu)
	assert.ErrorAs(t, err, &fatal)

	// CPU failures are always deterministic
	err = classifySetupError(errDummy("out of memory"), cpu)
	assert.ErrorAs(t, err, &fatal)
}

type errDummy string

func (e errDummy) Error() string { return string(e) }
