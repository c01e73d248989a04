package circuits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsDeterministic(t *testing.T) {
	first := Catalog()
	second := Catalog()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}

	seen := make(map[string]bool)
	for _, m := range first {
		name := m.Type.String()
		assert.False(t, seen[name], "duplicate circuit type %s", name)
		seen[name] = true
	}
}

func TestCatalogEntriesAreWellFormed(t *testing.T) {
	for _, m := range Catalog() {
		m := m
		t.Run(m.Type.String(), func(t *testing.T) {
			require.NotEmpty(t, m.Type.Family)
			require.Greater(t, m.MaxVkBytes, m.MinVkBytes)
			require.NotNil(t, m.Template)
			// templates must not share state between compilations
			assert.NotSame(t, m.Template(), m.Template())
		})
	}
}

func TestCircuitTypeString(t *testing.T) {
	ct := CircuitType{Family: "transfer", SizeClass: 12, Version: 1}
	assert.Equal(t, "transfer-k12-v1", ct.String())
}

func TestSubset(t *testing.T) {
	t.Run("empty filter selects everything", func(t *testing.T) {
		got, err := Subset(nil)
		require.NoError(t, err)
		assert.Equal(t, Catalog(), got)
	})

	t.Run("preserves catalog order", func(t *testing.T) {
		// names deliberately out of catalog order
		got, err := Subset([]string{
			StateUpdate.Type.String(),
			TransferSmall.Type.String(),
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Same(t, TransferSmall, got[0])
		assert.Same(t, StateUpdate, got[1])
	})

	t.Run("unknown name is a configuration error", func(t *testing.T) {
		_, err := Subset([]string{"transfer-k12-v1", "no-such-circuit"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no-such-circuit")
	})
}

func TestByName(t *testing.T) {
	m, ok := ByName("aggregation-k18-v1")
	require.True(t, ok)
	assert.Same(t, Aggregation, m)

	_, ok = ByName("aggregation-k18-v9")
	assert.False(t, ok)
}
