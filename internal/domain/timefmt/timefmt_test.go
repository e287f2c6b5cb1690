package timefmt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExampleFromSeconds() {
	fmt.Println(FromSeconds(3661))
	// Output: 01:01:01
}

func TestFromSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int
		expected string
	}{
		{name: "zero", seconds: 0, expected: "00:00:00"},
		{name: "seconds only", seconds: 59, expected: "00:00:59"},
		{name: "minute and seconds", seconds: 65, expected: "00:01:05"},
		{name: "hour minute second", seconds: 3661, expected: "01:01:01"},
		{name: "episode length", seconds: 125, expected: "00:02:05"},
		{name: "hours not capped at a day", seconds: 100*3600 + 59, expected: "100:00:59"},
		{name: "negative clamps to zero", seconds: -5, expected: "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromSeconds(tt.seconds))
		})
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, "-00:02:00", Remaining(125, 5))
	assert.Equal(t, "-00:00:00", Remaining(125, 125))
	assert.Equal(t, "-00:00:00", Remaining(125, 200))
}
