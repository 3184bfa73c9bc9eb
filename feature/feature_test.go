package feature

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureString(t *testing.T) {
	testData := map[string]struct {
		f        Feature
		expected string
		kind     Kind
	}{
		"intercept":   {f: Intercept(), expected: "growth_intercept", kind: KindGrowth},
		"linear":      {f: Linear(), expected: "growth_linear", kind: KindGrowth},
		"changepoint": {f: NewChangepoint("auto_03"), expected: "chpnt_auto_03", kind: KindChangepoint},
		"seasonality": {f: NewSeasonality("weekly", Cos, 2), expected: "seas_weekly_02_cos", kind: KindSeasonality},
		"event":       {f: NewEvent("Christmas"), expected: "event_Christmas", kind: KindEvent},
		"unknown":     {f: Feature{Kind: "promo", Name: "x"}, expected: "promo_x", kind: "promo"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, td.f.String())
			assert.Equal(t, td.kind, td.f.Kind)
		})
	}
}

func TestFeatureJSON(t *testing.T) {
	out, err := json.Marshal(NewSeasonality("yearly", Sin, 10))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"seasonality","name":"yearly","component":"sin","order":10}`, string(out))

	out, err = json.Marshal(NewEvent("Christmas"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"event","name":"Christmas"}`, string(out))

	var f Feature
	require.NoError(t, json.Unmarshal(out, &f))
	assert.Equal(t, NewEvent("Christmas"), f)
}

func TestLabels(t *testing.T) {
	labels := NewLabels([]Feature{
		Linear(),
		NewChangepoint("a"),
		NewChangepoint("b"),
		NewEvent("Christmas"),
	})
	assert.Equal(t, 4, labels.Len())

	idx, exists := labels.Index(NewChangepoint("b"))
	assert.True(t, exists)
	assert.Equal(t, 2, idx)

	_, exists = labels.Index(NewEvent("Carnival"))
	assert.False(t, exists)

	assert.Equal(t, map[Kind]int{KindGrowth: 1, KindChangepoint: 2, KindEvent: 1}, labels.Kinds())

	features := labels.Features()
	features[0] = Intercept()
	assert.Equal(t, Linear(), labels.Features()[0])

	var nilLabels *Labels
	assert.Equal(t, 0, nilLabels.Len())
	assert.Nil(t, nilLabels.Features())
	assert.Empty(t, nilLabels.Kinds())
}
