package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimited(t *testing.T) {
	b := NewLimited(3)
	assert.Equal(t, uint32(3), b.Remaining())
	assert.True(t, b.Consume())
	assert.True(t, b.Consume())
	assert.True(t, b.Consume())
	assert.Equal(t, uint32(0), b.Remaining())
	assert.False(t, b.Consume())
	assert.False(t, b.Consume())
}

func TestLimitedZero(t *testing.T) {
	b := NewLimited(0)
	assert.False(t, b.Consume())
}

func TestUnlimited(t *testing.T) {
	b := Unlimited()
	for i := 0; i < 1000; i++ {
		assert.True(t, b.Consume())
	}
}
