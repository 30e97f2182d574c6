package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(14500), Convert(145.00))
	assert.Equal(t, int64(10), Convert(0.1))
	assert.Equal(t, int64(2999), Convert(29.99))
	assert.Equal(t, int64(1), Convert(0.005))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, 145.0, Format(14500))
	assert.Equal(t, 0.01, Format(1))
}
