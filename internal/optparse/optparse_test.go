package optparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S3: {-a, -b, -v <val>, first positional, second positional} on argv
// ["prog","-ab","-v","x","P1","P2"] yields a=true, b=true, v="x",
// first="P1", second="P2", remaining=0.
func TestParseScenarioS3(t *testing.T) {
	spec := Spec{
		Options: []Option{
			{Name: "a", Short: 'a'},
			{Name: "b", Short: 'b'},
			{Name: "v", Short: 'v', TakesValue: true},
		},
		Positionals: []string{"first", "second"},
	}

	res, err := Parse(spec, []string{"prog", "-ab", "-v", "x", "P1", "P2"})
	require.NoError(t, err)

	assert.True(t, res.Bools["a"])
	assert.True(t, res.Bools["b"])
	assert.Equal(t, "x", res.Values["v"])
	assert.Equal(t, "P1", res.Positionals["first"])
	assert.Equal(t, "P2", res.Positionals["second"])
	assert.Empty(t, res.RemainingArgv)
}

func TestParseAttachedShortValue(t *testing.T) {
	spec := Spec{Options: []Option{{Name: "v", Short: 'v', TakesValue: true}}}
	res, err := Parse(spec, []string{"prog", "-vfoo"})
	require.NoError(t, err)
	assert.Equal(t, "foo", res.Values["v"])
}

func TestParseLongWithEquals(t *testing.T) {
	spec := Spec{Options: []Option{{Name: "socket", Long: "socket", TakesValue: true}}}
	res, err := Parse(spec, []string{"prog", "--socket=/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", res.Values["socket"])
}

func TestParseLongWithSeparateValue(t *testing.T) {
	spec := Spec{Options: []Option{{Name: "socket", Long: "socket", TakesValue: true}}}
	res, err := Parse(spec, []string{"prog", "--socket", "/tmp/x"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", res.Values["socket"])
}

func TestParseDoubleDashStopsOptionProcessing(t *testing.T) {
	spec := Spec{
		Options:     []Option{{Name: "a", Short: 'a'}},
		Positionals: []string{"first"},
	}
	res, err := Parse(spec, []string{"prog", "--", "-a"})
	require.NoError(t, err)
	assert.False(t, res.Bools["a"])
	assert.Equal(t, "-a", res.Positionals["first"])
}

func TestParseSubcommandAbsorbsRemainder(t *testing.T) {
	spec := Spec{
		Options:     []Option{{Name: "json", Long: "json"}},
		Positionals: []string{},
		Subcommand:  true,
	}
	res, err := Parse(spec, []string{"prog", "--json", "output-list", "--foo", "bar"})
	require.NoError(t, err)
	assert.True(t, res.Bools["json"])
	assert.Equal(t, []string{"output-list", "--foo", "bar"}, res.RemainingArgv)
}

func TestParseUnknownOptionIsFatal(t *testing.T) {
	spec := Spec{}
	_, err := Parse(spec, []string{"prog", "--nope"})
	assert.Error(t, err)
}

func TestParseMissingRequiredValueIsFatal(t *testing.T) {
	spec := Spec{Options: []Option{{Name: "socket", Long: "socket", TakesValue: true, Required: true}}}
	_, err := Parse(spec, []string{"prog"})
	assert.Error(t, err)
}

func TestParseMissingValueForFlagIsFatal(t *testing.T) {
	spec := Spec{Options: []Option{{Name: "v", Short: 'v', TakesValue: true}}}
	_, err := Parse(spec, []string{"prog", "-v"})
	assert.Error(t, err)
}
