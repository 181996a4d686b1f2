package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRunCommand(t *testing.T) {
	t.Setenv("AIPS_SCHEDULER_TIMEZONE", "UTC")
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := CreateCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"next-run", "daily", "--from", "2099-01-01 09:00:00", "-n", "2"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Daily:\n  Thu 2099-01-01 09:00:00 UTC\n  Fri 2099-01-02 09:00:00 UTC\n", out.String())
}

func TestNextRunCommandRejectsUnknownFrequency(t *testing.T) {
	t.Setenv("AIPS_SCHEDULER_TIMEZONE", "UTC")
	t.Chdir(t.TempDir())

	cmd := CreateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"next-run", "fortnightly"})

	assert.Error(t, cmd.Execute())
}

func TestRunScheduleRejectsBadID(t *testing.T) {
	cmd := CreateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run-schedule", "abc"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule id")
}

func TestParseFrom(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	got, err := parseFrom("2024-03-05 14:30", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, loc), got)

	got, err = parseFrom("2024-03-05T14:30:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)))

	_, err = parseFrom("next tuesday", loc)
	assert.Error(t, err)
}
