package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceResetBumpsEpoch(t *testing.T) {
	d := NewDevice(Snapshot{HasF16: true})
	assert.Equal(t, uint64(0), d.Epoch())
	assert.True(t, d.Get().HasF16)

	newEpoch := d.Reset(Snapshot{HasF16: false, HasSubgroups: true})
	assert.Equal(t, uint64(1), newEpoch)
	assert.Equal(t, uint64(1), d.Epoch())
	assert.False(t, d.Get().HasF16)
	assert.True(t, d.Get().HasSubgroups)
}

func TestDeviceResetIsMonotonic(t *testing.T) {
	d := NewDevice(Snapshot{})
	for i := 1; i <= 5; i++ {
		got := d.Reset(Snapshot{})
		assert.Equal(t, uint64(i), got)
	}
}
