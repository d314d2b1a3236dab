package selftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildHarness(failing map[string]bool) *Harness {
	fns := map[string]TestFunc{}
	for _, name := range StandardOrder {
		n := name
		fns[n] = func() (bool, string) {
			if failing[n] {
				return Fail("forced failure for %s", n)
			}
			return Pass()
		}
	}
	return New(StandardOrder, fns)
}

func TestRunAllRunsEveryTestInOrder(t *testing.T) {
	h := buildHarness(nil)
	report := h.RunAll()
	assert.Len(t, report.Results, len(StandardOrder))
	for i, res := range report.Results {
		assert.Equal(t, StandardOrder[i], res.Name)
	}
	assert.True(t, report.AllPassed())
}

func TestRunAllReportsFailures(t *testing.T) {
	h := buildHarness(map[string]bool{"learn": true})
	report := h.RunAll()
	assert.False(t, report.AllPassed())
	assert.Equal(t, []string{"learn"}, report.Failures())
}

func TestRunOneUnknownNameIsNonFatal(t *testing.T) {
	h := buildHarness(nil)
	res := h.RunOne("does_not_exist")
	assert.False(t, res.Passed)
	assert.Equal(t, "unknown test", res.Message)
}

func TestRunOneKnownName(t *testing.T) {
	h := buildHarness(nil)
	res := h.RunOne("process")
	assert.True(t, res.Passed)
}
