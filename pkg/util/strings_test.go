package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntDefaultAndClamp(t *testing.T) {
	assert.Equal(t, 5, ParseIntDefault("", 5))
	assert.Equal(t, 5, ParseIntDefault("x", 5))
	assert.Equal(t, 12, ParseIntDefault("12", 5))
	assert.Equal(t, 1, ClampInt(-3, 1, 100))
	assert.Equal(t, 100, ClampInt(300, 1, 100))
}
