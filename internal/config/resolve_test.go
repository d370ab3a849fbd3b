package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func numDefault(v float64) *cty.Value {
	val := cty.NumberFloatVal(v)
	return &val
}

func TestResolveOptions_Precedence(t *testing.T) {
	decls := []OptionDecl{
		{Name: "chunk_size", Type: cty.Number, Default: numDefault(100)},
	}

	cli := map[string]cty.Value{"chunk_size": cty.StringVal("400")}
	section := map[string]cty.Value{"chunk_size": cty.NumberIntVal(300)}
	global := map[string]cty.Value{"chunk_size": cty.NumberIntVal(200)}

	t.Run("command line wins over every layer", func(t *testing.T) {
		resolved, err := ResolveOptions("s", decls, cli, section, global)
		require.NoError(t, err)
		assert.True(t, resolved["chunk_size"].RawEquals(cty.NumberIntVal(400)))
	})

	t.Run("stage section wins over global", func(t *testing.T) {
		resolved, err := ResolveOptions("s", decls, nil, section, global)
		require.NoError(t, err)
		assert.True(t, resolved["chunk_size"].RawEquals(cty.NumberIntVal(300)))
	})

	t.Run("global wins over default", func(t *testing.T) {
		resolved, err := ResolveOptions("s", decls, nil, nil, global)
		require.NoError(t, err)
		assert.True(t, resolved["chunk_size"].RawEquals(cty.NumberIntVal(200)))
	})

	t.Run("default used when no layer supplies the option", func(t *testing.T) {
		resolved, err := ResolveOptions("s", decls, nil, nil, nil)
		require.NoError(t, err)
		assert.True(t, resolved["chunk_size"].RawEquals(cty.NumberIntVal(100)))
	})
}

func TestResolveOptions_Missing(t *testing.T) {
	decls := []OptionDecl{
		{Name: "top_n", Type: cty.Number},
	}

	_, err := ResolveOptions("count_words", decls, nil, nil, nil)
	require.Error(t, err)

	var missing *MissingConfigError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "count_words", missing.Stage)
	assert.Equal(t, "top_n", missing.Option)
}

func TestResolveOptions_TypeConversion(t *testing.T) {
	t.Run("string override coerces to the declared type", func(t *testing.T) {
		decls := []OptionDecl{
			{Name: "threshold", Type: cty.Number},
			{Name: "verbose", Type: cty.Bool},
		}
		cli := map[string]cty.Value{
			"threshold": cty.StringVal("0.5"),
			"verbose":   cty.StringVal("true"),
		}

		resolved, err := ResolveOptions("s", decls, cli, nil, nil)
		require.NoError(t, err)
		assert.True(t, resolved["threshold"].RawEquals(cty.NumberFloatVal(0.5)))
		assert.True(t, resolved["verbose"].RawEquals(cty.True))
	})

	t.Run("unconvertible value is rejected", func(t *testing.T) {
		decls := []OptionDecl{{Name: "threshold", Type: cty.Number}}
		cli := map[string]cty.Value{"threshold": cty.StringVal("not-a-number")}

		_, err := ResolveOptions("s", decls, cli, nil, nil)
		assert.ErrorContains(t, err, "not a valid number")
	})
}

func TestResolveOptions_UndeclaredIgnored(t *testing.T) {
	decls := []OptionDecl{{Name: "known", Type: cty.String, Default: defString("x")}}
	section := map[string]cty.Value{"unknown": cty.StringVal("y")}

	resolved, err := ResolveOptions("s", decls, nil, section, nil)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)
	assert.Contains(t, resolved, "known")
}

func defString(s string) *cty.Value {
	val := cty.StringVal(s)
	return &val
}

func TestParseOverrides(t *testing.T) {
	t.Run("unscoped and scoped keys land in the right layer", func(t *testing.T) {
		global, perStage, err := ParseOverrides([]string{
			"chunk_size=200",
			"count_words.top_n=10",
		})
		require.NoError(t, err)

		assert.True(t, global["chunk_size"].RawEquals(cty.StringVal("200")))
		require.Contains(t, perStage, "count_words")
		assert.True(t, perStage["count_words"]["top_n"].RawEquals(cty.StringVal("10")))
	})

	t.Run("value may contain an equals sign", func(t *testing.T) {
		global, _, err := ParseOverrides([]string{"query=a=b"})
		require.NoError(t, err)
		assert.True(t, global["query"].RawEquals(cty.StringVal("a=b")))
	})

	t.Run("malformed pairs are rejected", func(t *testing.T) {
		for _, pair := range []string{"novalue", "=x", "stage.=x", ".key=x"} {
			_, _, err := ParseOverrides([]string{pair})
			assert.Error(t, err, "pair %q should be rejected", pair)
		}
	})
}
