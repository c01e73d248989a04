package keygen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/base-org/setup-key-generator/circuits"
	"github.com/base-org/setup-key-generator/keygen/storage"
)

func TestLoadMissingArtifact(t *testing.T) {
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	store := storage.NewArtifactStore(fs)

	_, _, err = Load(store, circuits.TransferSmall)
	assert.Error(t, err)
}

func TestDecodeKeysRejectsGarbage(t *testing.T) {
	_, _, err := DecodeKeys(circuits.TransferSmall, []byte("not a proving key"), []byte("not a verification key"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), circuits.TransferSmall.Type.String())
}

func TestLoadRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("key synthesis is expensive")
	}
	fs, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	store := storage.NewArtifactStore(fs)
	meta := circuits.TransferSmall

	km, err := GnarkSynthesizer{}.Synthesize(context.Background(), meta, DeviceHandle{Kind: CPU})
	require.NoError(t, err)
	require.NoError(t, store.Persist(meta.Type, FormatVersion, km.ProvingKey, km.VerifyingKey, km.PkTag))

	pk, vk, err := Load(store, meta)
	require.NoError(t, err)
	assert.NotNil(t, pk)
	assert.NotNil(t, vk)
}
