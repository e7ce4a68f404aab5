package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceKeyParts(t *testing.T) {
	key := DeviceKey("fpga-0014:acl1")
	assert.Equal(t, "fpga-0014", key.Node())
	assert.Equal(t, "acl1", key.Slot())

	bare := DeviceKey("lonely")
	assert.Equal(t, "lonely", bare.Node())
	assert.Equal(t, "", bare.Slot())
}

func TestMapping(t *testing.T) {
	bcast := New("bcast")
	reduce := New("reduce")
	mapping := NewMapping([]*Program{bcast, reduce}, map[DeviceKey]*Program{
		"n2:f1": reduce,
		"n1:f2": bcast,
		"n1:f1": bcast,
	})

	t.Run("ProgramFor", func(t *testing.T) {
		p, err := mapping.ProgramFor("n1:f2")
		require.NoError(t, err)
		assert.Same(t, bcast, p)
	})

	t.Run("Unresolved", func(t *testing.T) {
		p, err := mapping.ProgramFor("n9:f9")
		assert.Nil(t, p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnresolvedMapping))
		assert.Contains(t, err.Error(), "n9:f9")
	})

	t.Run("DeviceKeysSorted", func(t *testing.T) {
		assert.Equal(t, []DeviceKey{"n1:f1", "n1:f2", "n2:f1"}, mapping.DeviceKeys())
	})

	t.Run("DevicesOf", func(t *testing.T) {
		assert.Equal(t, []DeviceKey{"n1:f1", "n1:f2"}, mapping.DevicesOf(bcast))
		assert.Equal(t, []DeviceKey{"n2:f1"}, mapping.DevicesOf(reduce))
		assert.Empty(t, mapping.DevicesOf(New("other")))
	})

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, mapping.Validate())
	})
}

func TestMappingValidateForeignProgram(t *testing.T) {
	known := New("known")
	foreign := New("foreign")
	mapping := NewMapping([]*Program{known}, map[DeviceKey]*Program{
		"n1:f1": known,
		"n1:f2": foreign,
	})

	err := mapping.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreign")
}

func TestMappingCopiesInput(t *testing.T) {
	p := New("p")
	devices := map[DeviceKey]*Program{"n1:f1": p}
	mapping := NewMapping([]*Program{p}, devices)

	devices["n1:f2"] = p
	_, err := mapping.ProgramFor("n1:f2")
	assert.ErrorIs(t, err, ErrUnresolvedMapping)
}
