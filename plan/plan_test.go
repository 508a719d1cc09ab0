package plan

import (
	"testing"

	"github.com/oxy-rt/kernelrt/tensor"
	"github.com/stretchr/testify/assert"
)

func TestTierString(t *testing.T) {
	assert.Equal(t, "subgroup", TierSubgroup.String())
	assert.Equal(t, "streaming", TierStreaming.String())
	assert.Equal(t, "none", Tier(99).String())
}

func TestKernelPlanZeroValueIsUnvalidated(t *testing.T) {
	p := KernelPlan{Operation: "attention", Variant: "subgroup", OutputDType: tensor.F16}
	assert.False(t, p.Validated)
	assert.Equal(t, TierNone, p.Tier)
}
