package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    int
	}{
		{"zero of zero", 0, 0, 0},
		{"unknown total", 500, 0, 0},
		{"negative total", 10, -1, 0},
		{"start", 0, 25000, 0},
		{"rounds down", 10000, 25000, 40},
		{"rounds down uneven", 1, 3, 33},
		{"just below complete", 24999, 25000, 99},
		{"complete", 25000, 25000, 100},
		{"clamped above", 30000, 25000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percent(tt.current, tt.total))
		})
	}
}
