package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsRCWithExtraction(t *testing.T) {
	opts := Default()
	opts.Mode |= ModeRC
	opts.RealizabilityOnly = false
	require.Error(t, opts.Validate())

	opts.RealizabilityOnly = true
	assert.NoError(t, opts.Validate())
}

func TestValidateRejectsRGOnSATBackEnd(t *testing.T) {
	opts := Default()
	opts.BackEnd = LearningSAT
	opts.Mode |= ModeRG
	require.Error(t, opts.Validate())

	opts.BackEnd = LearningQBF
	assert.NoError(t, opts.Validate())
}

func TestValidateRejectsUnknownBackEnd(t *testing.T) {
	opts := Default()
	opts.BackEnd = "bdd"
	require.Error(t, opts.Validate())
}

func TestValidateParallelNeedsThreads(t *testing.T) {
	opts := Default()
	opts.BackEnd = Parallel
	require.Error(t, opts.Validate())

	opts.Threads = 4
	assert.NoError(t, opts.Validate())
}

func TestModeHas(t *testing.T) {
	m := ModeHittingSet | ModeRG
	assert.True(t, m.Has(ModeHittingSet))
	assert.True(t, m.Has(ModeRG))
	assert.False(t, m.Has(ModeRC))
	assert.False(t, m.Has(ModeTwoSolver))
}
