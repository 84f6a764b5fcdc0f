package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2025-03-01")
	require.True(t, ok)
	assert.Equal(t, time.March, got.Month())
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Unix(42, 0)
	assert.Equal(t, def, ParseTimeDefault("", def))
	assert.Equal(t, def, ParseTimeDefault("yesterday", def))
}
