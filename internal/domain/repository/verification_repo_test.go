package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		sent     int64
		verified int64
		want     int
	}{
		{name: "empty store", sent: 0, verified: 0, want: 0},
		{name: "half verified", sent: 2, verified: 1, want: 50},
		{name: "rounds down", sent: 3, verified: 1, want: 33},
		{name: "rounds up", sent: 3, verified: 2, want: 67},
		{name: "all verified", sent: 5, verified: 5, want: 100},
		{name: "none verified", sent: 4, verified: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuccessRate(tt.sent, tt.verified))
		})
	}
}
