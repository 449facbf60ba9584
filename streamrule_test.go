package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamRuleTableFirstMatchWins(t *testing.T) {
	var tbl streamRuleTable
	require.NoError(t, tbl.Add(mediaNameKey, MethodTrue, "", true, "mplayer", noUID, "", "media"))
	require.NoError(t, tbl.Add(mediaNameKey, MethodTrue, "", true, "", noUID, "", "fallback"))

	group, ok := tbl.Group(nil, "mplayer", noUID, "")
	require.True(t, ok)
	assert.Equal(t, "media", group)

	group, ok = tbl.Group(nil, "vlc", noUID, "")
	require.True(t, ok)
	assert.Equal(t, "fallback", group)
}

func TestStreamRuleTableNoMatch(t *testing.T) {
	var tbl streamRuleTable
	require.NoError(t, tbl.Add(mediaNameKey, MethodTrue, "", true, "mplayer", noUID, "", "media"))
	_, ok := tbl.Group(nil, "vlc", noUID, "")
	assert.False(t, ok)
}

func TestStreamRuleTableRedefinitionReplacesInPlace(t *testing.T) {
	var tbl streamRuleTable
	require.NoError(t, tbl.Add(mediaNameKey, MethodTrue, "", true, "mplayer", noUID, "", "first"))
	require.NoError(t, tbl.Add(mediaNameKey, MethodTrue, "", true, "fallback-marker", noUID, "", "marker"))
	require.NoError(t, tbl.Add(mediaNameKey, MethodTrue, "", true, "mplayer", noUID, "", "second"))

	require.Len(t, tbl.rules, 2)
	group, ok := tbl.Group(nil, "mplayer", noUID, "")
	require.True(t, ok)
	assert.Equal(t, "second", group)
}

func TestStreamRuleTableRequiresSomeSelector(t *testing.T) {
	var tbl streamRuleTable
	err := tbl.Add("", MethodTrue, "", false, "", noUID, "", "group")
	assert.Error(t, err)
}

func TestStreamRuleTableRequiresGroup(t *testing.T) {
	var tbl streamRuleTable
	err := tbl.Add("", MethodTrue, "", false, "mplayer", noUID, "", "")
	assert.Error(t, err)
}

func TestStreamRuleTablePropertyMatch(t *testing.T) {
	var tbl streamRuleTable
	require.NoError(t, tbl.Add(mediaNameKey, MethodEquals, "ringtone", true, "", noUID, "", "ringtones"))

	group, ok := tbl.Group(fakeProps{mediaNameKey: "ringtone"}, "", noUID, "")
	require.True(t, ok)
	assert.Equal(t, "ringtones", group)

	_, ok = tbl.Group(fakeProps{mediaNameKey: "music"}, "", noUID, "")
	assert.False(t, ok)
}

func TestStreamRuleTableUIDZeroIsNotWildcard(t *testing.T) {
	var tbl streamRuleTable
	require.NoError(t, tbl.Add("", MethodTrue, "", false, "", 0, "", "root-owned"))

	_, ok := tbl.Group(nil, "", 1000, "")
	assert.False(t, ok)

	group, ok := tbl.Group(nil, "", 0, "")
	require.True(t, ok)
	assert.Equal(t, "root-owned", group)
}

// fakeProps is a minimal PropertyList for tests in this package that
// don't need internal/fake's fuller doubles.
type fakeProps map[string]string

func (p fakeProps) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}
