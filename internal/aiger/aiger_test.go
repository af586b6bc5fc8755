package aiger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleLatchErrorAig is the smallest realizable circuit: one latch s, one
// output error = s, s' = 0, one unused controllable input.
const singleLatchErrorAig = `aag 2 1 1 1 0
2
4 0
4
i0 controllable_c
`

func TestReadASCIIRoundTrips(t *testing.T) {
	aig, err := Read(strings.NewReader(singleLatchErrorAig))
	require.NoError(t, err)

	assert.Equal(t, 2, aig.MaxVar)
	require.Len(t, aig.Inputs, 1)
	assert.Equal(t, Lit(2), aig.Inputs[0])
	require.Len(t, aig.Latches, 1)
	assert.Equal(t, Lit(4), aig.Latches[0].Lit)
	assert.Equal(t, Lit(0), aig.Latches[0].Next)
	require.Len(t, aig.Outputs, 1)
	assert.Equal(t, Lit(4), aig.Outputs[0])
	assert.True(t, aig.IsControllable(0))

	require.NoError(t, aig.Validate())

	var buf bytes.Buffer
	require.NoError(t, WriteASCII(&buf, aig))

	aig2, err := Read(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, aig.Inputs, aig2.Inputs)
	assert.Equal(t, aig.Latches, aig2.Latches)
	assert.Equal(t, aig.Outputs, aig2.Outputs)
}

func TestValidateRejectsMultipleOutputs(t *testing.T) {
	const bad = `aag 2 1 0 2 0
2
2
2
i0 controllable_c
`
	aig, err := Read(strings.NewReader(bad))
	require.NoError(t, err)
	assert.Error(t, aig.Validate())
}

func TestValidateRejectsNoControllableInputs(t *testing.T) {
	const bad = `aag 1 1 0 1 0
2
2
i0 plain_input
`
	aig, err := Read(strings.NewReader(bad))
	require.NoError(t, err)
	assert.Error(t, aig.Validate())
}

func TestReadRejectsNonZeroLatchReset(t *testing.T) {
	const bad = `aag 1 0 1 1 0
2 1 1
2
`
	_, err := Read(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestLitHelpers(t *testing.T) {
	l := Lit(5)
	assert.True(t, l.Negated())
	assert.Equal(t, Lit(4), l.Not())
	assert.Equal(t, uint32(2), l.Index())
}
