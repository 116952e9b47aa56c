package cli

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockAndDurationFlags_Normalize(t *testing.T) {
	var from, hours string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	clockFlag(fs, &from, "from", "")
	durationFlag(fs, &hours, "hours", "")

	require.NoError(t, fs.Parse([]string{"--from", "9:05", "--hours", "25:30"}))
	assert.Equal(t, "09:05", from)
	assert.Equal(t, "25:30", hours, "durations may exceed a day")
}

func TestClockFlag_RejectsOutOfRange(t *testing.T) {
	var from string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	clockFlag(fs, &from, "from", "")
	assert.Error(t, fs.Parse([]string{"--from", "25:00"}))
}

func TestMonthFlag(t *testing.T) {
	var month string
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	monthFlag(fs, &month, "month", "")
	require.NoError(t, fs.Parse([]string{"--month", "2026-02"}))
	assert.Equal(t, "2026-02", month)
	assert.Error(t, fs.Parse([]string{"--month", "Feb"}))
}
