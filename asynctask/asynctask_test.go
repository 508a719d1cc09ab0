package asynctask

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvedFutureReturnsValueImmediately(t *testing.T) {
	f := Resolved(42)
	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitRunsOnPoolAndResolves(t *testing.T) {
	p := NewPool(2, 8, 100*time.Millisecond)
	f := Submit(p, func() (string, error) {
		return "compiled", nil
	})
	v, err := f.Wait()
	require.NoError(t, err)
	assert.Equal(t, "compiled", v)
}

func TestSubmitPropagatesError(t *testing.T) {
	p := NewPool(1, 8, 100*time.Millisecond)
	f := Submit(p, func() (int, error) {
		return 0, errors.New("compile failed")
	})
	_, err := f.Wait()
	assert.EqualError(t, err, "compile failed")
}
