package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionOnlyOnRemote(t *testing.T) {
	remote := &Profile{Kind: KindRemote, UploadBytes: 1, DownloadBytes: 2, TotalBytes: 10}
	info, ok := remote.Subscription()
	assert.True(t, ok)
	assert.Equal(t, int64(3), info.ConsumedBytes())

	local := &Profile{Kind: KindLocal}
	_, ok = local.Subscription()
	assert.False(t, ok)
}

func TestUsageRatio(t *testing.T) {
	tests := []struct {
		name string
		up   int64
		down int64
		tot  int64
		want float64
	}{
		{"half used", 200, 300, 1000, 0.5},
		{"unbounded plan", 500, 500, 0, 0},
		{"negative total", 1, 1, -5, 0},
		{"overconsumed clamps", 900, 900, 1000, 1},
		{"untouched", 0, 0, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := SubscriptionInfo{UploadBytes: tt.up, DownloadBytes: tt.down, TotalBytes: tt.tot}
			assert.InDelta(t, tt.want, info.UsageRatio(), 1e-9)
		})
	}
}

func TestExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	none := SubscriptionInfo{}
	assert.False(t, none.IsExpired(now))
	assert.Equal(t, time.Duration(0), none.TimeLeft(now))

	future := now.Add(48 * time.Hour)
	active := SubscriptionInfo{ExpiresAt: &future}
	assert.False(t, active.IsExpired(now))
	assert.Equal(t, 48*time.Hour, active.TimeLeft(now))

	past := now.Add(-time.Minute)
	expired := SubscriptionInfo{ExpiresAt: &past}
	assert.True(t, expired.IsExpired(now))
	assert.Equal(t, time.Duration(0), expired.TimeLeft(now))

	exact := SubscriptionInfo{ExpiresAt: &now}
	assert.True(t, exact.IsExpired(now))
}

func TestRefreshDue(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	p := &Profile{
		Kind:                  KindRemote,
		LastUpdatedAt:         now.Add(-90 * time.Minute),
		UpdateIntervalMinutes: 60,
	}
	assert.True(t, p.RefreshDue(now))

	p.LastUpdatedAt = now.Add(-30 * time.Minute)
	assert.False(t, p.RefreshDue(now))

	p.UpdateIntervalMinutes = 0
	p.LastUpdatedAt = now.Add(-24 * time.Hour)
	assert.False(t, p.RefreshDue(now))

	local := &Profile{Kind: KindLocal, LastUpdatedAt: now.Add(-24 * time.Hour), UpdateIntervalMinutes: 60}
	assert.False(t, local.RefreshDue(now))
}
