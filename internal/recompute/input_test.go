package recompute_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemeasure/livemeasure/internal/recompute"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

func TestApplyDevelopmentCostsOverNullSet(t *testing.T) {
	var prior measure.Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{"prj": null}`), &prior))

	newCost := 250.0
	in := &recompute.Input{DevelopmentCosts: map[string]recompute.DevelopmentCost{
		"prj": {Overall: "1000", NewCode: &newCost},
	}}
	in.ApplyDevelopmentCosts(prior)

	overall, ok := prior.DevelopmentCost("prj", false)
	require.True(t, ok)
	assert.True(t, overall.Equal(measure.Text("1000")))
	fresh, ok := prior.PriorValue("prj", metric.NewDevelopmentCost)
	require.True(t, ok)
	assert.Equal(t, 250.0, fresh)
}
