package models

import (
	"testing"
	"time"
)

func TestGroupExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{
			name:      "no expiry never expires",
			expiresAt: nil,
			want:      false,
		},
		{
			name:      "past expiry",
			expiresAt: &past,
			want:      true,
		},
		{
			name:      "future expiry",
			expiresAt: &future,
			want:      false,
		},
		{
			name:      "exactly now is not yet expired",
			expiresAt: &now,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Group{ExpiresAt: tt.expiresAt}
			if got := g.Expired(now); got != tt.want {
				t.Fatalf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}
