package storage

import (
	"testing"
	"time"
)

func TestVideoRecordChanged(t *testing.T) {
	base := func() *VideoRecord {
		return &VideoRecord{
			Title:           "Title",
			Description:     "Desc",
			DurationSeconds: 120,
			PublishedAt:     time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		name   string
		mutate func(*VideoRecord)
		want   bool
	}{
		{"identical", func(*VideoRecord) {}, false},
		{"title", func(v *VideoRecord) { v.Title = "Other" }, true},
		{"description", func(v *VideoRecord) { v.Description = "Other" }, true},
		{"duration", func(v *VideoRecord) { v.DurationSeconds = 121 }, true},
		{"published", func(v *VideoRecord) { v.PublishedAt = v.PublishedAt.Add(time.Hour) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			incoming := base()
			tt.mutate(incoming)
			if got := base().Changed(incoming); got != tt.want {
				t.Errorf("Changed = %v, want %v", got, tt.want)
			}
		})
	}
}
