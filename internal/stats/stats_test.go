package stats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportReflectsCounters(t *testing.T) {
	c := New("test_engine")
	c.SATCalls.Inc()
	c.SATCalls.Inc()
	c.Generalizations.Inc()
	c.FrameCount.Set(4)

	report := Report("test_engine", c)
	assert.Contains(t, report, "sat calls:           2")
	assert.Contains(t, report, "generalizations:     1")
	assert.Contains(t, report, "frames:              4")
	assert.True(t, strings.HasPrefix(report, "rsynth stats (test_engine engine):"))
}

func TestCountersAreIndependentPerEngine(t *testing.T) {
	a := New("engine_a")
	b := New("engine_b")
	a.QBFCalls.Inc()

	assert.Contains(t, Report("engine_a", a), "qbf calls:           1")
	assert.Contains(t, Report("engine_b", b), "qbf calls:           0")
}
