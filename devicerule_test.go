package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRuleTableAllMatchEmit(t *testing.T) {
	var t1 deviceRuleTable
	require.NoError(t, t1.Add("speaker", "name", MethodEquals, "alsa_output.speaker", 0))
	require.NoError(t, t1.Add("builtin", "name", MethodStartsWith, "alsa_output.", 0))

	tags := t1.Classify("alsa_output.speaker", nil, 0, 0)
	assert.Equal(t, []string{"speaker", "builtin"}, tags)
}

func TestDeviceRuleTableFiltersByFlags(t *testing.T) {
	var tbl deviceRuleTable
	require.NoError(t, tbl.Add("a", "name", MethodTrue, "", 0))
	require.NoError(t, tbl.Add("b", "name", MethodTrue, "", RouteAudio))

	tags := tbl.Classify("anything", nil, RouteAudio, RouteAudio)
	assert.Equal(t, []string{"b"}, tags)
}

func TestDeviceRuleTableNamePseudoKey(t *testing.T) {
	var tbl deviceRuleTable
	require.NoError(t, tbl.Add("x", namePseudoKey, MethodEquals, "sink0", 0))
	assert.Equal(t, []string{"x"}, tbl.Classify("sink0", nil, 0, 0))
	assert.Empty(t, tbl.Classify("sink1", nil, 0, 0))
}

func TestDeviceRuleTablePropertyLookupUsesUnknownSentinel(t *testing.T) {
	var tbl deviceRuleTable
	require.NoError(t, tbl.Add("x", "device.bus", MethodEquals, unknownPropertyValue, 0))
	// No properties at all: lookup falls back to the unknown sentinel,
	// which the rule above explicitly matches against.
	assert.Equal(t, []string{"x"}, tbl.Classify("sink0", nil, 0, 0))
}

func TestDeviceRuleTableRejectsEmptyTypeOrSelector(t *testing.T) {
	var tbl deviceRuleTable
	assert.Error(t, tbl.Add("", "name", MethodTrue, "", 0))
	assert.Error(t, tbl.Add("x", "", MethodTrue, "", 0))
}

func TestDeviceRuleTableIsType(t *testing.T) {
	var tbl deviceRuleTable
	require.NoError(t, tbl.Add("speaker", "name", MethodEquals, "sink0", 42))

	data, ok := tbl.IsType("sink0", nil, "speaker")
	require.True(t, ok)
	assert.Equal(t, uint32(42), data.Flags)

	_, ok = tbl.IsType("sink1", nil, "speaker")
	assert.False(t, ok)
}

func TestCardRuleTableRequiresProfile(t *testing.T) {
	var tbl cardRuleTable
	require.NoError(t, tbl.Add("hdmi", MethodTrue, "", "output:hdmi-stereo", 0))

	assert.Empty(t, tbl.Classify("card0", []string{"output:analog-stereo"}, 0, 0))
	assert.Equal(t, []string{"hdmi"}, tbl.Classify("card0", []string{"output:hdmi-stereo"}, 0, 0))
}

func TestCardRuleTableNoProfileRequiredMatchesAnyProfileSet(t *testing.T) {
	var tbl cardRuleTable
	require.NoError(t, tbl.Add("any", MethodTrue, "", "", 0))
	assert.Equal(t, []string{"any"}, tbl.Classify("card0", nil, 0, 0))
}

func TestCardRuleTableIsType(t *testing.T) {
	var tbl cardRuleTable
	require.NoError(t, tbl.Add("hdmi", MethodEquals, "card0", "", 0))
	_, ok := tbl.IsType("card0", "hdmi")
	assert.True(t, ok)
	_, ok = tbl.IsType("card0", "other")
	assert.False(t, ok)
}
