package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name string
		in   Input
		want Decision
	}{
		{
			name: "never connected and no creation date",
			in:   Input{},
			want: NoAction(),
		},
		{
			name: "never connected within grace period",
			in:   Input{CreationDate: ptr(daysAgo(10))},
			want: NoAction(),
		},
		{
			name: "never connected exactly at grace boundary",
			in:   Input{CreationDate: ptr(daysAgo(14))},
			want: NoAction(),
		},
		{
			name: "never connected created on grace day at midnight",
			in:   Input{CreationDate: ptr(daysAgo(14).Truncate(24 * time.Hour))},
			want: Terminate(ReasonNeverUsedGraceExpired),
		},
		{
			name: "never connected past grace period",
			in:   Input{CreationDate: ptr(daysAgo(15))},
			want: Terminate(ReasonNeverUsedGraceExpired),
		},
		{
			name: "recently used",
			in:   Input{LastConnection: ptr(daysAgo(3))},
			want: NoAction(),
		},
		{
			name: "last connection on warn day early morning",
			in:   Input{LastConnection: ptr(time.Date(2025, 3, 22, 0, 5, 0, 0, time.UTC))},
			want: Warn(5),
		},
		{
			name: "last connection on warn day late evening",
			in:   Input{LastConnection: ptr(time.Date(2025, 3, 22, 23, 55, 0, 0, time.UTC))},
			want: Warn(5),
		},
		{
			name: "one day before warn day",
			in:   Input{LastConnection: ptr(daysAgo(84))},
			want: NoAction(),
		},
		{
			name: "between warn and cutoff",
			in:   Input{LastConnection: ptr(daysAgo(87))},
			want: NoAction(),
		},
		{
			name: "exactly at cutoff is not exceeded",
			in:   Input{LastConnection: ptr(daysAgo(90))},
			want: NoAction(),
		},
		{
			name: "cutoff exceeded by an hour",
			in:   Input{LastConnection: ptr(daysAgo(90).Add(-time.Hour))},
			want: Terminate(ReasonCutoffExceeded),
		},
		{
			name: "long idle",
			in:   Input{LastConnection: ptr(daysAgo(400))},
			want: Terminate(ReasonCutoffExceeded),
		},
		{
			name: "creation date ignored once connected",
			in: Input{
				LastConnection: ptr(daysAgo(2)),
				CreationDate:   ptr(daysAgo(300)),
			},
			want: NoAction(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in, testNow, th))
		})
	}
}

func TestClassify_WarnDayNeverTerminates(t *testing.T) {
	th := DefaultThresholds()
	warnDay := daysAgo(th.WarnDays)
	start := time.Date(warnDay.Year(), warnDay.Month(), warnDay.Day(), 0, 0, 0, 0, time.UTC)

	for h := 0; h < 24; h++ {
		last := start.Add(time.Duration(h) * time.Hour)
		d := Classify(Input{LastConnection: &last}, testNow, th)
		assert.Equal(t, KindWarn, d.Kind, "hour %d", h)
		assert.Equal(t, th.CutoffDays-th.WarnDays, d.DaysRemaining)
	}
}

func TestClassify_NonUTCInputs(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2025-03-22 03:00 JST is 2025-03-21 18:00 UTC, the day before the warn day.
	last := time.Date(2025, 3, 22, 3, 0, 0, 0, tokyo)

	d := Classify(Input{LastConnection: &last}, testNow.In(tokyo), DefaultThresholds())
	assert.Equal(t, NoAction(), d)
}

func TestClassify_Idempotent(t *testing.T) {
	th := DefaultThresholds()
	inputs := []Input{
		{},
		{CreationDate: ptr(daysAgo(20))},
		{LastConnection: ptr(daysAgo(85))},
		{LastConnection: ptr(daysAgo(95))},
	}
	for _, in := range inputs {
		assert.Equal(t, Classify(in, testNow, th), Classify(in, testNow, th))
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	th := Thresholds{WarnDays: 25, CutoffDays: 30, NeverUsedGraceDays: 7}

	assert.Equal(t, Warn(5), Classify(Input{LastConnection: ptr(daysAgo(25))}, testNow, th))
	assert.Equal(t, Terminate(ReasonCutoffExceeded), Classify(Input{LastConnection: ptr(daysAgo(31))}, testNow, th))
	assert.Equal(t, Terminate(ReasonNeverUsedGraceExpired), Classify(Input{CreationDate: ptr(daysAgo(8))}, testNow, th))
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := []Thresholds{
		{WarnDays: 0, CutoffDays: 90, NeverUsedGraceDays: 14},
		{WarnDays: 85, CutoffDays: -1, NeverUsedGraceDays: 14},
		{WarnDays: 85, CutoffDays: 90, NeverUsedGraceDays: 0},
		{WarnDays: 90, CutoffDays: 90, NeverUsedGraceDays: 14},
		{WarnDays: 95, CutoffDays: 90, NeverUsedGraceDays: 14},
	}
	for _, th := range bad {
		assert.Error(t, th.Validate(), "%+v", th)
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "no_action", NoAction().String())
	assert.Equal(t, "warn(5 days remaining)", Warn(5).String())
	assert.Equal(t, "terminate(cutoff-exceeded)", Terminate(ReasonCutoffExceeded).String())
	assert.False(t, NoAction().IsAction())
	assert.True(t, Warn(1).IsAction())
}

func TestIdleDays(t *testing.T) {
	days, ok := IdleDays(Input{LastConnection: ptr(daysAgo(12))}, testNow)
	assert.True(t, ok)
	assert.Equal(t, 12, days)

	days, ok = IdleDays(Input{CreationDate: ptr(daysAgo(4))}, testNow)
	assert.True(t, ok)
	assert.Equal(t, 4, days)

	_, ok = IdleDays(Input{}, testNow)
	assert.False(t, ok)
}

func TestFixedClock(t *testing.T) {
	c := FixedClock(testNow)
	assert.Equal(t, testNow, c.Now())
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
