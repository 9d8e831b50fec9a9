package strakerr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCarriesAirfoilAndValue(t *testing.T) {
	err := New(OutOfRange, 1.5, "CL outside polar")
	wrapped := fmt.Errorf("lookup: %w", err)

	require.True(t, Is(wrapped, OutOfRange))
	assert.False(t, Is(wrapped, BadConfig))

	WithAirfoil(wrapped, 3)
	assert.Equal(t, 3, err.Airfoil)
	assert.Contains(t, wrapped.Error(), "airfoil 3")
	assert.Contains(t, wrapped.Error(), "1.5")

	// an index that is already bound is not overwritten
	WithAirfoil(wrapped, 5)
	assert.Equal(t, 3, err.Airfoil)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, MissingKey, KindOf(New(MissingKey, "noppoint", "absent")))
	assert.Equal(t, Kind(0), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, "NoZeroCrossing", NoZeroCrossing.String())
}
