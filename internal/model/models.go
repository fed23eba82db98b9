package model

import (
	"time"
)

// ProfileRecord is the persistence row for a profile. Kind discriminates
// the Remote/Local variant; Remote-only columns stay NULL/zero on Local
// rows. SubscriptionURL is stored encrypted (fieldcrypt envelope).
type ProfileRecord struct {
	ID        string `gorm:"primaryKey"`
	Kind      string `gorm:"index"`
	Name      string
	IsActive  bool `gorm:"index"`
	SortOrder int

	SubscriptionURL       *string
	UploadBytes           int64
	DownloadBytes         int64
	TotalBytes            int64
	ExpiresAt             *time.Time
	UpdateIntervalMinutes int
	SupportURL            *string
	TestURL               *string

	CreatedAt     time.Time
	LastUpdatedAt time.Time

	Servers []ServerRecord `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
}

// ServerRecord is one endpoint row. SortOrder is contiguous per profile.
type ServerRecord struct {
	ID        string `gorm:"primaryKey"`
	ProfileID string `gorm:"index"`

	Name       string
	Host       string
	Port       int
	Protocol   string
	ConfigData string
	Remark     string
	IsFavorite bool
	SortOrder  int
	LatencyMs  *int64

	CreatedAt time.Time
}

// Setting is a small key-value table for one-shot flags and metadata
// (e.g. the legacy migration marker).
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// LegacyConfig is the pre-multi-profile single-config row. Kept only so the
// one-time migration can read it; never written by current code.
type LegacyConfig struct {
	ID        uint `gorm:"primaryKey"`
	Name      string
	RawURI    string
	CreatedAt time.Time
}
