package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kintai/internal/model"
)

func TestGuard_Matches(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s := model.NewSchedule("alice", "root", start, start.Add(time.Hour))
	s.ID = 7

	tests := []struct {
		name  string
		guard Guard
		want  bool
	}{
		{"id only", Guard{ID: 7}, true},
		{"other id", Guard{ID: 8}, false},
		{"subject", Guard{ID: 7, Username: "alice"}, true},
		{"wrong subject", Guard{ID: 7, Username: "bob"}, false},
		{"creator", Guard{ID: 7, CreatedBy: "root"}, true},
		{"wrong creator", Guard{ID: 7, CreatedBy: "alice"}, false},
		{"proposed flags", Guard{ID: 7, Permitted: Is(false), Absent: Is(false), Enable: Is(true)}, true},
		{"expects permitted", Guard{ID: 7, Permitted: Is(true)}, false},
		{"expects disabled", Guard{ID: 7, Enable: Is(false)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guard.Matches(s))
		})
	}
}
