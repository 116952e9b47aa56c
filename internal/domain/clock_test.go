package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"00:00", 0, true},
		{"09:30", 570, true},
		{"9:30", 570, true},
		{"23:59", 1439, true},
		{"24:00", 1440, true},
		{"24:01", 0, false},
		{"12:60", 0, false},
		{"1230", 0, false},
		{"", 0, false},
		{"ab:cd", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if !tc.ok {
			assert.Error(t, err, "input=%q", tc.in)
			continue
		}
		require.NoError(t, err, "input=%q", tc.in)
		assert.Equal(t, tc.want, got, "input=%q", tc.in)
	}
}

func TestFormatClock_Clamps(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(-5))
	assert.Equal(t, "13:05", FormatClock(785))
	assert.Equal(t, "24:00", FormatClock(2000))
}

func TestParseHHMM_AllowsLongDurations(t *testing.T) {
	got, err := ParseHHMM("26:15")
	require.NoError(t, err)
	assert.Equal(t, 26*60+15, got)

	_, err = ParseHHMM("2:75")
	assert.Error(t, err)
}

func TestHoursFromMinutes(t *testing.T) {
	assert.Equal(t, 1.5, HoursFromMinutes(90))
	assert.Equal(t, 2.0, HoursFromMinutes(120))
	assert.Equal(t, 0.33, HoursFromMinutes(20))
	assert.Equal(t, 0.17, HoursFromMinutes(10))
	assert.Equal(t, 0.67, HoursFromMinutes(40))
	assert.Equal(t, 1.98, HoursFromMinutes(119))
}

func TestTimeRange_Valid(t *testing.T) {
	assert.True(t, TimeRange{From: "09:00", To: "10:00"}.Valid())
	assert.False(t, TimeRange{From: "10:00", To: "10:00"}.Valid())
	assert.False(t, TimeRange{From: "11:00", To: "10:00"}.Valid())
	assert.False(t, TimeRange{From: "", To: "10:00"}.Valid())
}

func TestInterval_Overlaps(t *testing.T) {
	a := Interval{Start: 540, End: 600}
	assert.True(t, a.Overlaps(Interval{Start: 570, End: 630}))
	assert.False(t, a.Overlaps(Interval{Start: 600, End: 660}), "touching intervals do not overlap")
	assert.False(t, a.Overlaps(Interval{Start: 480, End: 540}))
}

func TestNormalizeComment(t *testing.T) {
	assert.Equal(t, "fix the bug", NormalizeComment("  Fix   THE\tbug "))
}
