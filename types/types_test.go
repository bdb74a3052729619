package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShareBelowStepsThroughCDF(t *testing.T) {
	s := TimeSeriesSample{CDF: []CDFPoint{
		{Value: -20, Share: 0.05},
		{Value: -15, Share: 0.30},
		{Value: -10, Share: 0.70},
		{Value: 0, Share: 1.0},
	}}

	assert.Equal(t, 0.0, s.ShareBelow(-25))
	assert.Equal(t, 0.05, s.ShareBelow(-20))
	assert.Equal(t, 0.05, s.ShareBelow(-16))
	assert.Equal(t, 0.30, s.ShareBelow(-15))
	assert.Equal(t, 0.70, s.ShareBelow(-5))
	assert.Equal(t, 1.0, s.ShareBelow(10))
}

func TestShareBelowWithoutCDF(t *testing.T) {
	assert.Equal(t, 0.0, TimeSeriesSample{Mean: -12}.ShareBelow(-15))
}

func TestUsable(t *testing.T) {
	assert.True(t, TimeSeriesSample{SampleCount: 3, Completeness: 0.8}.Usable(0.6))
	assert.True(t, TimeSeriesSample{SampleCount: 1, Completeness: 0.6}.Usable(0.6))
	assert.False(t, TimeSeriesSample{SampleCount: 3, Completeness: 0.5}.Usable(0.6))
	assert.False(t, TimeSeriesSample{SampleCount: 0, Completeness: 1.0}.Usable(0.6))
}

func TestDateRangeDays(t *testing.T) {
	start := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 7, DateRange{Start: start, End: start.AddDate(0, 0, 7)}.Days())
	assert.Equal(t, 0, DateRange{Start: start, End: start}.Days())
}

func TestTaskStateTerminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.True(t, TaskSucceeded.Terminal())
	assert.True(t, TaskFailed.Terminal())
}

func TestKindOfResolvesWrappedChains(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{fmt.Errorf("lat out of range: %w", ErrInvalidGeometry), KindInvalidGeometry},
		{fmt.Errorf("3 of 13 usable: %w", ErrInsufficientData), KindInsufficientData},
		{fmt.Errorf("no composite: %w", ErrNoData), KindInsufficientData},
		{fmt.Errorf("deadline: %w", ErrTimeout), KindTimeout},
		{fmt.Errorf("platform 502: %w", ErrDependencyUnavailable), KindDependencyUnavailable},
		{fmt.Errorf("gone: %w", ErrTaskNotFound), KindTaskNotFound},
		{fmt.Errorf("stopped between stages: %w", ErrTaskCancelled), KindCancelled},
		{errors.New("surprise"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.kind, KindOf(tc.err), "error %v", tc.err)
	}
}
