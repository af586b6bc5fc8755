package qbf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

func TestWriteQDIMACSFormat(t *testing.T) {
	store := variable.New()
	a := store.Fresh(variable.Controllable)
	b := store.Fresh(variable.Uncontrollable)

	prefix := Prefix{
		{Quantifier: ForAll, Vars: []variable.ID{b}},
		{Quantifier: Exists, Vars: []variable.ID{a}},
	}

	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(a), cnf.Of(b).Not()})

	var buf bytes.Buffer
	require.NoError(t, WriteQDIMACS(&buf, prefix, matrix, int(b)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "p cnf 2 1", lines[0])
	assert.Equal(t, "a 2 0", lines[1])
	assert.Equal(t, "e 1 0", lines[2])
	assert.Equal(t, "1 -2 0", lines[3])
}

func TestWriteQDIMACSSkipsEmptyBlocks(t *testing.T) {
	store := variable.New()
	a := store.Fresh(variable.Controllable)

	prefix := Prefix{
		{Quantifier: ForAll, Vars: nil},
		{Quantifier: Exists, Vars: []variable.ID{a}},
	}
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(a)})

	var buf bytes.Buffer
	require.NoError(t, WriteQDIMACS(&buf, prefix, matrix, int(a)))
	assert.NotContains(t, buf.String(), "a 0")
}

func TestWriteQDIMACSBindsFreeVarsInnermost(t *testing.T) {
	store := variable.New()
	a := store.Fresh(variable.StatePresent)
	b := store.Fresh(variable.Controllable)
	tmp := store.Fresh(variable.Temporary)

	prefix := Prefix{
		{Quantifier: Exists, Vars: []variable.ID{a}},
		{Quantifier: ForAll, Vars: []variable.ID{b}},
	}
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(a), cnf.Of(b), cnf.Of(tmp)})

	var buf bytes.Buffer
	require.NoError(t, WriteQDIMACS(&buf, prefix, matrix, int(tmp)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "e 1 0", lines[1])
	assert.Equal(t, "a 2 0", lines[2])
	assert.Equal(t, "e 3 0", lines[3], "free matrix variables are bound innermost-existential")
}

func TestReadQDIMACSResultSat(t *testing.T) {
	in := "c comment\ns cnf 1 2 0\nV 1 -2 0\nV 3 0\n"
	res, err := ReadQDIMACSResult(strings.NewReader(in))
	require.NoError(t, err)
	assert.True(t, res.Sat)
	assert.True(t, res.Known)
	assert.Equal(t, cnf.Cube{1, -2, 3}, res.Model)
}

func TestReadQDIMACSResultUnsat(t *testing.T) {
	in := "s cnf -1 0\n"
	res, err := ReadQDIMACSResult(strings.NewReader(in))
	require.NoError(t, err)
	assert.False(t, res.Sat)
	assert.True(t, res.Known)
	assert.Empty(t, res.Model)
}

func TestReadQDIMACSResultUnknown(t *testing.T) {
	in := "s cnf 0 2 0\n"
	res, err := ReadQDIMACSResult(strings.NewReader(in))
	require.NoError(t, err)
	assert.False(t, res.Known)
}
