package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewNumberFormat(t *testing.T) {
	re := regexp.MustCompile(`^ORD-\d{6}$`)
	for _, ts := range []time.Time{
		time.Unix(0, 0),
		time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC),
		time.Now(),
	} {
		n := NewNumber(ts)
		assert.Regexp(t, re, n)
	}
}

func TestNewNumberDerivedFromMillis(t *testing.T) {
	ts := time.UnixMilli(1712345678901)
	assert.Equal(t, "ORD-678901", NewNumber(ts))
}
