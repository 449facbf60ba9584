package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleRuleSet = `
[[sink_rule]]
type = "speaker"
property = "name"
method = "equals"
arg = "sink0"

[[card_rule]]
type = "hdmi"
method = "equals"
arg = "card0"
profile = "output:hdmi-stereo"

[[stream_rule]]
property = "media.name"
method = "true"
client_name = "mplayer"
group = "media"

[[pid]]
pid = 1234
group = "ringtones"

[[group]]
name = "media"
flags = 1
`

func writeRuleSet(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadRuleSetParsesEveryTable(t *testing.T) {
	path := writeRuleSet(t, sampleRuleSet)
	rs, err := LoadRuleSet(path)
	require.NoError(t, err)

	require.Len(t, rs.SinkRules, 1)
	assert.Equal(t, "speaker", rs.SinkRules[0].Type)
	require.Len(t, rs.CardRules, 1)
	require.Len(t, rs.StreamRules, 1)
	require.Len(t, rs.PIDs, 1)
	require.Len(t, rs.Groups, 1)
}

func TestRuleSetApplyInstallsEverything(t *testing.T) {
	path := writeRuleSet(t, sampleRuleSet)
	rs, err := LoadRuleSet(path)
	require.NoError(t, err)

	e := New(&fakeHost{}, zap.NewNop())
	require.NoError(t, rs.Apply(e))

	tags := e.ClassifyEndpoint(EndpointPlayback, fakeEndpoint{name: "sink0"}, 0, 0)
	assert.Equal(t, []string{"speaker"}, tags)

	_, ok := e.GroupFind("media")
	assert.True(t, ok)

	group := e.ClassifyStream(fakeStream{client: &fakeClient{pid: 1234, name: "mplayer", uid: noUID}})
	assert.Equal(t, "ringtones", group, "the pid preload should win over the stream rule")
}

func TestRuleSetApplyCollectsNonFatalDeviceRuleErrors(t *testing.T) {
	path := writeRuleSet(t, `
[[sink_rule]]
type = ""
property = "name"
method = "equals"
arg = "sink0"

[[sink_rule]]
type = "speaker"
property = "name"
method = "equals"
arg = "sink1"
`)
	rs, err := LoadRuleSet(path)
	require.NoError(t, err)

	e := New(&fakeHost{}, zap.NewNop())
	err = rs.Apply(e)
	require.Error(t, err, "the malformed first rule should be reported")

	tags := e.ClassifyEndpoint(EndpointPlayback, fakeEndpoint{name: "sink1"}, 0, 0)
	assert.Equal(t, []string{"speaker"}, tags, "the second, valid rule should still have been applied")
}

func TestRuleSetApplyStreamRuleErrorAborts(t *testing.T) {
	path := writeRuleSet(t, `
[[stream_rule]]
group = ""
`)
	rs, err := LoadRuleSet(path)
	require.NoError(t, err)

	e := New(&fakeHost{}, zap.NewNop())
	assert.Error(t, rs.Apply(e))
}

func TestStreamRuleSpecUIDZeroIsNotOmitted(t *testing.T) {
	path := writeRuleSet(t, `
[[stream_rule]]
uid = 0
group = "root-owned"
`)
	rs, err := LoadRuleSet(path)
	require.NoError(t, err)
	require.Len(t, rs.StreamRules, 1)
	require.NotNil(t, rs.StreamRules[0].UID)
	assert.EqualValues(t, 0, *rs.StreamRules[0].UID)

	e := New(&fakeHost{}, zap.NewNop())
	require.NoError(t, rs.Apply(e))

	group := e.ClassifyStream(fakeStream{client: &fakeClient{pid: 1, uid: 1000}})
	assert.Equal(t, DefaultGroupName, group, "a non-root client must not match a uid=0 rule")

	group = e.ClassifyStream(fakeStream{client: &fakeClient{pid: 1, uid: 0}})
	assert.Equal(t, "root-owned", group)
}

func TestParseMethodRejectsUnknown(t *testing.T) {
	_, err := parseMethod("bogus")
	assert.Error(t, err)
}
