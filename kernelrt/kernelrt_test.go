package kernelrt

import (
	"testing"
	"time"

	"github.com/oxy-rt/kernelrt/gpu"
	"github.com/oxy-rt/kernelrt/plan"
	"github.com/oxy-rt/kernelrt/registry"
	"github.com/oxy-rt/kernelrt/rule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Snapshot: gpu.Snapshot{HasF16: true},
		Raw:      registry.RawConfig{},
		Source: func(sourceID string) (string, error) {
			return "", nil
		},
		Workers:     2,
		QueueSize:   8,
		IdleTimeout: time.Second,
	}
}

func TestNewWiresHandlersToRuntimeCollaborators(t *testing.T) {
	rt := New(testConfig())
	require.NotNil(t, rt.Handlers)
	assert.Same(t, rt.Registry, rt.Handlers.Registry)
	assert.Same(t, rt.Device, rt.Handlers.Device)
	assert.Same(t, rt.Pipelines, rt.Handlers.Pipelines)
	assert.Same(t, rt.Telemetry, rt.Handlers.Telemetry)
}

func TestDefaultRuleSetsAreRegisteredUnderAttentionNamespace(t *testing.T) {
	rt := New(testConfig())
	set, ok := rule.LookupSet[plan.Tier](rt.Rules, "attention", "tier_ladder")
	require.True(t, ok)
	assert.Len(t, set, 4)
}

func TestHandleDeviceLostBumpsEpochAndRunsHooksAfterClearingCaches(t *testing.T) {
	rt := New(testConfig())
	startEpoch := rt.Device.Epoch()

	var hookSawEpoch uint64
	rt.OnDeviceLost(func(gpu.Snapshot) {
		hookSawEpoch = rt.Device.Epoch()
	})

	rt.HandleDeviceLost(gpu.Snapshot{HasF16: false})

	assert.Equal(t, startEpoch+1, rt.Device.Epoch())
	assert.Equal(t, startEpoch+1, hookSawEpoch)
	assert.False(t, rt.Device.Get().HasF16)
}

func TestHandleDeviceLostRunsHooksInRegistrationOrder(t *testing.T) {
	rt := New(testConfig())
	var order []int
	rt.OnDeviceLost(func(gpu.Snapshot) { order = append(order, 1) })
	rt.OnDeviceLost(func(gpu.Snapshot) { order = append(order, 2) })

	rt.HandleDeviceLost(gpu.Snapshot{})

	assert.Equal(t, []int{1, 2}, order)
}
