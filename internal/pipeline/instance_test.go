package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stageflow/internal/config"
	"github.com/vk/stageflow/internal/site"
)

func TestCoreCommand(t *testing.T) {
	def := &config.StageDef{
		Name:        "count",
		Interpreter: "python3",
		Module:      "textflow.count",
		Options: []config.OptionDecl{
			{Name: "top_n", Type: cty.Number},
			{Name: "lowercase", Type: cty.Bool},
		},
	}
	si := &StageInstance{
		Def:   def,
		Name:  "count",
		Shape: config.DefaultShape(),
		Inputs: []BoundTag{
			{Tag: "tokens", Format: "dat", Path: "out/tokens.dat"},
		},
		Outputs: []BoundTag{
			{Tag: "word_counts", Format: "dat", Path: "out/word_counts.dat"},
		},
		Options: map[string]cty.Value{
			"top_n":     cty.NumberIntVal(25),
			"lowercase": cty.True,
		},
	}

	assert.Equal(t,
		"python3 -m textflow.count count --tokens=out/tokens.dat --word_counts=out/word_counts.dat --top_n=25 --lowercase=true",
		si.CoreCommand())
}

func TestCommand_SiteDecoration(t *testing.T) {
	def := &config.StageDef{
		Name:        "count",
		Interpreter: "python3",
		Module:      "textflow.count",
	}
	si := &StageInstance{
		Def:   def,
		Name:  "count",
		Shape: config.Shape{NProcess: 4, Threads: 2, Nodes: 1},
	}

	s := site.FromConfig(&config.SiteConfig{Name: "local"})
	assert.Equal(t,
		"OMP_NUM_THREADS=2 mpirun -n 4 python3 -m textflow.count count --mpi",
		si.Command(s))
}

func TestFormatOptionValue(t *testing.T) {
	cases := []struct {
		name string
		val  cty.Value
		want string
	}{
		{"string", cty.StringVal("hello"), "hello"},
		{"integer", cty.NumberIntVal(42), "42"},
		{"float", cty.NumberFloatVal(0.5), "0.5"},
		{"bool true", cty.True, "true"},
		{"bool false", cty.False, "false"},
		{"list", cty.ListVal([]cty.Value{cty.StringVal("u"), cty.StringVal("g")}), "u,g"},
		{"tuple", cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}), "1,2"},
		{"null", cty.NullVal(cty.String), ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatOptionValue(tc.val))
		})
	}
}

func TestOutputPaths(t *testing.T) {
	si := &StageInstance{
		Outputs: []BoundTag{
			{Tag: "a", Path: "out/a.dat"},
			{Tag: "b", Path: "out/b.dat"},
		},
	}
	assert.Equal(t, []string{"out/a.dat", "out/b.dat"}, si.OutputPaths())
}
