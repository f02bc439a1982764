package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "Zü", Truncate("Zürich", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "Senior Pricing Actuary", CollapseSpace("  Senior\n\t Pricing   Actuary "))
	assert.Equal(t, "", CollapseSpace(" \n "))
}

func TestJitter(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := Jitter(400*time.Millisecond, 50*time.Millisecond, 200*time.Millisecond)
		assert.GreaterOrEqual(t, d, 450*time.Millisecond)
		assert.Less(t, d, 600*time.Millisecond)
	}
	assert.Equal(t, 450*time.Millisecond, Jitter(400*time.Millisecond, 50*time.Millisecond, 50*time.Millisecond))
}
