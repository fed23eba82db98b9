// Package profile defines the domain model for VPN profiles: an ordered
// collection of server configurations, either backed by a subscription URL
// (Remote) or manually curated (Local).
package profile

import (
	"errors"
	"time"

	"cybervpn/internal/uri"
)

// Common contract errors shared by repository callers.
var (
	ErrNotFound       = errors.New("profile not found")
	ErrServerNotFound = errors.New("server not found")
	ErrNotRemote      = errors.New("profile has no subscription")
)

// Kind discriminates the two profile variants. Consumers switch on it
// exhaustively; there is no inheritance to fall through.
type Kind string

const (
	KindRemote Kind = "remote"
	KindLocal  Kind = "local"
)

// Server is one VPN endpoint inside a profile.
type Server struct {
	ID        string
	ProfileID string
	Name      string
	Host      string
	Port      int
	Protocol  uri.Protocol
	// ConfigData is the opaque protocol-specific blob produced at parse
	// time. Nothing outside the parsers and the engine adapter reads it.
	ConfigData string
	Remark     string
	IsFavorite bool
	// SortOrder is contiguous and gap-free within a profile.
	SortOrder int
	// LatencyMs is the last measured round-trip, nil when never probed.
	LatencyMs *int64
	CreatedAt time.Time
}

// Profile is the tagged union over the Remote and Local variants. Remote
// fields are zero-valued on Local profiles and must not be read there.
type Profile struct {
	ID            string
	Kind          Kind
	Name          string
	IsActive      bool
	SortOrder     int
	CreatedAt     time.Time
	LastUpdatedAt time.Time

	// Remote variant only.
	SubscriptionURL       *string
	UploadBytes           int64
	DownloadBytes         int64
	TotalBytes            int64
	ExpiresAt             *time.Time
	UpdateIntervalMinutes int
	SupportURL            *string
	TestURL               *string

	Servers []Server
}

// Subscription derives the read-only usage view. The second return is false
// for Local profiles.
func (p *Profile) Subscription() (SubscriptionInfo, bool) {
	if p.Kind != KindRemote {
		return SubscriptionInfo{}, false
	}
	return SubscriptionInfo{
		UploadBytes:   p.UploadBytes,
		DownloadBytes: p.DownloadBytes,
		TotalBytes:    p.TotalBytes,
		ExpiresAt:     p.ExpiresAt,
	}, true
}

// RefreshDue reports whether a Remote profile's subscription is stale.
func (p *Profile) RefreshDue(now time.Time) bool {
	if p.Kind != KindRemote {
		return false
	}
	interval := time.Duration(p.UpdateIntervalMinutes) * time.Minute
	if interval <= 0 {
		return false
	}
	return now.Sub(p.LastUpdatedAt) >= interval
}

// SubscriptionInfo is a derived view over a Remote profile's traffic
// counters and expiry.
type SubscriptionInfo struct {
	UploadBytes   int64
	DownloadBytes int64
	TotalBytes    int64
	ExpiresAt     *time.Time
}

// ConsumedBytes is upload plus download.
func (i SubscriptionInfo) ConsumedBytes() int64 {
	return i.UploadBytes + i.DownloadBytes
}

// UsageRatio is consumed/total clamped to [0,1]. An unbounded plan
// (total == 0) reports 0.
func (i SubscriptionInfo) UsageRatio() float64 {
	if i.TotalBytes <= 0 {
		return 0
	}
	ratio := float64(i.ConsumedBytes()) / float64(i.TotalBytes)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// IsExpired reports whether the plan's expiry has passed.
func (i SubscriptionInfo) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && !i.ExpiresAt.After(now)
}

// TimeLeft is the remaining plan duration, zero when expired or when no
// expiry is set.
func (i SubscriptionInfo) TimeLeft(now time.Time) time.Duration {
	if i.ExpiresAt == nil || i.IsExpired(now) {
		return 0
	}
	return i.ExpiresAt.Sub(now)
}
