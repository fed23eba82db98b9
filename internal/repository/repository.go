// Package repository owns the durable profile collection: persistence,
// ordering and active-flag invariants, reactive read streams, subscription
// refresh, and the one-time legacy migration.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cybervpn/internal/fieldcrypt"
	"cybervpn/internal/geoip"
	"cybervpn/internal/logger"
	"cybervpn/internal/mapper"
	"cybervpn/internal/model"
	"cybervpn/internal/profile"
	"cybervpn/internal/subscription"
	"cybervpn/internal/uri"
)

// Contract violations. These indicate caller bugs, not runtime input, and
// fail fast instead of being silently repaired.
var (
	ErrUnknownID            = errors.New("id not present in collection")
	ErrReorderNotExhaustive = errors.New("reorder list must contain every id exactly once")
)

const legacyMigratedKey = "legacy_migrated"

// Fetcher is the subscription HTTP collaborator. Satisfied by
// *subscription.Fetcher; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*subscription.Result, error)
}

// Repository serializes all mutations behind one mutex while read streams
// are observed concurrently by any number of subscribers.
type Repository struct {
	db      *gorm.DB
	crypt   *fieldcrypt.Service
	fetcher Fetcher
	parsers *uri.Registry

	// defaultIntervalMinutes applies to subscriptions whose endpoint sends
	// no profile-update-interval header.
	defaultIntervalMinutes int

	mu          sync.Mutex
	allWatch    *broadcaster[[]profile.Profile]
	activeWatch *broadcaster[*profile.Profile]
}

func New(db *gorm.DB, crypt *fieldcrypt.Service, fetcher Fetcher, defaultIntervalMinutes int) *Repository {
	if defaultIntervalMinutes <= 0 {
		defaultIntervalMinutes = 1440
	}
	return &Repository{
		db:                     db,
		crypt:                  crypt,
		fetcher:                fetcher,
		parsers:                uri.NewRegistry(),
		defaultIntervalMinutes: defaultIntervalMinutes,
		allWatch:               newBroadcaster[[]profile.Profile](),
		activeWatch:            newBroadcaster[*profile.Profile](),
	}
}

// ---- Read side ----

// All returns every profile with its servers, ordered by sort position.
func (r *Repository) All() ([]profile.Profile, error) {
	var records []model.ProfileRecord
	err := r.db.
		Preload("Servers", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Order("sort_order ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	out := make([]profile.Profile, 0, len(records))
	for i := range records {
		out = append(out, *r.toDomain(&records[i]))
	}
	return out, nil
}

// Get returns one profile by id.
func (r *Repository) Get(id string) (*profile.Profile, error) {
	var record model.ProfileRecord
	err := r.db.
		Preload("Servers", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return r.toDomain(&record), nil
}

// ActiveProfile returns the active profile, or nil when none is active.
func (r *Repository) ActiveProfile() (*profile.Profile, error) {
	var record model.ProfileRecord
	err := r.db.
		Preload("Servers", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&record, "is_active = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active profile: %w", err)
	}
	return r.toDomain(&record), nil
}

// WatchAll streams the full collection. The current snapshot is delivered
// immediately; every later mutation delivers a fresh one before the mutating
// call returns.
func (r *Repository) WatchAll(ctx context.Context) <-chan []profile.Profile {
	ch := r.allWatch.subscribe(ctx)
	if snapshot, err := r.All(); err == nil {
		r.allWatch.publish(snapshot)
	}
	return ch
}

// WatchActiveProfile streams the active profile (nil when none).
func (r *Repository) WatchActiveProfile(ctx context.Context) <-chan *profile.Profile {
	ch := r.activeWatch.subscribe(ctx)
	if active, err := r.ActiveProfile(); err == nil {
		r.activeWatch.publish(active)
	}
	return ch
}

// ---- Mutations ----

// AddRemoteProfile fetches and parses a subscription and persists the
// resulting Remote profile at the end of the sort order. The fetch runs
// before the mutation lock is taken so it cannot stall other operations.
func (r *Repository) AddRemoteProfile(ctx context.Context, subURL, name string) (*profile.Profile, error) {
	result, err := r.fetcher.Fetch(ctx, subURL)
	if err != nil {
		return nil, err
	}

	servers, parseFailures := r.parseServers(result.Links)
	if len(servers) == 0 {
		return nil, fmt.Errorf("subscription yielded no valid servers (%d rejected)", parseFailures)
	}
	if parseFailures > 0 {
		logger.Log.Warnf("subscription %s: rejected %d of %d links", subURL, parseFailures, len(result.Links))
	}

	if name == "" {
		name = "Subscription"
	}

	now := time.Now()
	interval := result.Meta.UpdateIntervalMinutes
	if interval <= 0 {
		interval = r.defaultIntervalMinutes
	}

	encURL, err := r.crypt.Encrypt(&subURL)
	if err != nil {
		return nil, fmt.Errorf("failed to protect subscription url: %w", err)
	}

	p := &profile.Profile{
		ID:                    uuid.NewString(),
		Kind:                  profile.KindRemote,
		Name:                  name,
		CreatedAt:             now,
		LastUpdatedAt:         now,
		SubscriptionURL:       &subURL,
		UploadBytes:           result.Meta.UploadBytes,
		DownloadBytes:         result.Meta.DownloadBytes,
		TotalBytes:            result.Meta.TotalBytes,
		ExpiresAt:             result.Meta.ExpiresAt,
		UpdateIntervalMinutes: interval,
		SupportURL:            result.Meta.SupportURL,
		TestURL:               result.Meta.TestURL,
	}
	attachServers(p, servers, now)

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.Transaction(func(tx *gorm.DB) error {
		p.SortOrder = nextProfileSortOrder(tx)
		record := mapper.ProfileToRecord(p)
		record.SubscriptionURL = encURL
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist profile: %w", err)
	}

	r.emitLocked()
	return p, nil
}

// AddLocalProfile persists a manually curated profile.
func (r *Repository) AddLocalProfile(name string, configs []*uri.ServerConfig) (*profile.Profile, error) {
	if name == "" {
		name = "Local"
	}

	now := time.Now()
	p := &profile.Profile{
		ID:            uuid.NewString(),
		Kind:          profile.KindLocal,
		Name:          name,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	attachServers(p, r.buildServers(configs), now)

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		p.SortOrder = nextProfileSortOrder(tx)
		return tx.Create(mapper.ProfileToRecord(p)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist profile: %w", err)
	}

	r.emitLocked()
	return p, nil
}

// AddServer appends a parsed server to an existing Local profile.
func (r *Repository) AddServer(profileID string, cfg *uri.ServerConfig) (*profile.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var created *profile.Server
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var record model.ProfileRecord
		if err := tx.First(&record, "id = ?", profileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return profile.ErrNotFound
			}
			return err
		}

		var maxOrder int
		tx.Model(&model.ServerRecord{}).
			Where("profile_id = ?", profileID).
			Select("COALESCE(MAX(sort_order)+1, 0)").Scan(&maxOrder)

		s := serverFromConfig(cfg, time.Now())
		s.ProfileID = profileID
		s.SortOrder = maxOrder

		row := mapper.ServerToRecord(&s)
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		created = &s
		return touchProfile(tx, profileID)
	})
	if err != nil {
		return nil, err
	}

	r.emitLocked()
	return created, nil
}

// SetActive atomically deactivates the current active profile and activates
// id. No observer can see zero or two active profiles mid-flight.
func (r *Repository) SetActive(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ProfileRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownID, id)
		}

		if err := tx.Model(&model.ProfileRecord{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.ProfileRecord{}).
			Where("id = ?", id).
			Update("is_active", true).Error
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// Update replaces a profile's mutable fields. It refuses to resurrect a
// deleted profile.
func (r *Repository) Update(p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":            p.Name,
			"last_updated_at": time.Now(),
		}
		if p.Kind == profile.KindRemote {
			updates["update_interval_minutes"] = p.UpdateIntervalMinutes
		}

		res := tx.Model(&model.ProfileRecord{}).Where("id = ?", p.ID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return profile.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// UpdateSubscription re-fetches a Remote profile and replaces its server
// list and usage metadata. A failed fetch leaves the stored rows untouched,
// and a profile deleted while the fetch was in flight stays deleted.
func (r *Repository) UpdateSubscription(ctx context.Context, id string) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if p.Kind != profile.KindRemote || p.SubscriptionURL == nil {
		return profile.ErrNotRemote
	}

	// Network I/O happens outside the mutation lock.
	result, err := r.fetcher.Fetch(ctx, *p.SubscriptionURL)
	if err != nil {
		return err
	}

	servers, parseFailures := r.parseServers(result.Links)
	if len(servers) == 0 {
		return fmt.Errorf("subscription yielded no valid servers (%d rejected)", parseFailures)
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.db.Transaction(func(tx *gorm.DB) error {
		var record model.ProfileRecord
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Deleted mid-refresh; discard the fetched result.
				return profile.ErrNotFound
			}
			return err
		}

		if err := tx.Where("profile_id = ?", id).Delete(&model.ServerRecord{}).Error; err != nil {
			return err
		}

		for i := range servers {
			servers[i].ProfileID = id
			servers[i].SortOrder = i
			row := mapper.ServerToRecord(&servers[i])
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"upload_bytes":    result.Meta.UploadBytes,
			"download_bytes":  result.Meta.DownloadBytes,
			"total_bytes":     result.Meta.TotalBytes,
			"expires_at":      result.Meta.ExpiresAt,
			"last_updated_at": now,
		}
		if result.Meta.UpdateIntervalMinutes > 0 {
			updates["update_interval_minutes"] = result.Meta.UpdateIntervalMinutes
		}
		return tx.Model(&model.ProfileRecord{}).Where("id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// UpdateAllDueSubscriptions refreshes every Remote profile whose interval
// has elapsed. Individual failures are logged and skipped; the return value
// is the number of profiles successfully updated.
func (r *Repository) UpdateAllDueSubscriptions(ctx context.Context) (int, error) {
	profiles, err := r.All()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated := 0
	for i := range profiles {
		p := &profiles[i]
		if !p.RefreshDue(now) {
			continue
		}
		if err := r.UpdateSubscription(ctx, p.ID); err != nil {
			logger.Log.Warnf("refresh of %q failed: %v", p.Name, err)
			continue
		}
		updated++
	}
	return updated, nil
}

// Delete removes a profile and its servers. Deleting the active profile
// leaves the collection with no active profile.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.ProfileRecord{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return profile.ErrNotFound
		}
		return tx.Where("profile_id = ?", id).Delete(&model.ServerRecord{}).Error
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// ReorderProfiles reassigns contiguous sort positions matching ids. The
// list must mention every profile exactly once; anything else is a caller
// bug and leaves the prior ordering unchanged.
func (r *Repository) ReorderProfiles(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&model.ProfileRecord{}).Pluck("id", &existing).Error; err != nil {
			return err
		}
		if err := checkExhaustive(ids, existing); err != nil {
			return err
		}
		for pos, id := range ids {
			if err := tx.Model(&model.ProfileRecord{}).
				Where("id = ?", id).
				Update("sort_order", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// ReorderServers does the same for the servers inside one profile.
func (r *Repository) ReorderServers(profileID string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing []string
		if err := tx.Model(&model.ServerRecord{}).
			Where("profile_id = ?", profileID).
			Pluck("id", &existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			return profile.ErrNotFound
		}
		if err := checkExhaustive(ids, existing); err != nil {
			return err
		}
		for pos, id := range ids {
			if err := tx.Model(&model.ServerRecord{}).
				Where("id = ?", id).
				Update("sort_order", pos).Error; err != nil {
				return err
			}
		}
		return touchProfile(tx, profileID)
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// SetFavorite toggles a server's favorite flag.
func (r *Repository) SetFavorite(serverID string, favorite bool) error {
	return r.updateServer(serverID, map[string]interface{}{"is_favorite": favorite})
}

// RenameServer changes a server's display name.
func (r *Repository) RenameServer(serverID, name string) error {
	return r.updateServer(serverID, map[string]interface{}{"name": name})
}

// RecordLatency stores a measured round-trip for a server.
func (r *Repository) RecordLatency(serverID string, latencyMs int64) error {
	return r.updateServer(serverID, map[string]interface{}{"latency_ms": latencyMs})
}

func (r *Repository) updateServer(serverID string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.Model(&model.ServerRecord{}).Where("id = ?", serverID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return profile.ErrServerNotFound
	}

	r.emitLocked()
	return nil
}

// MigrateFromLegacy promotes the pre-multi-profile single-config record
// into a Local profile. Idempotent: a second run after success is a no-op.
func (r *Repository) MigrateFromLegacy() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marker model.Setting
	err := r.db.First(&marker, "key = ?", legacyMigratedKey).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		var legacy []model.LegacyConfig
		if err := tx.Find(&legacy).Error; err != nil {
			return err
		}

		for _, old := range legacy {
			cfg, err := r.parsers.Parse(old.RawURI)
			if err != nil {
				logger.Log.Warnf("skipping unparseable legacy config %d: %v", old.ID, err)
				continue
			}

			now := time.Now()
			name := old.Name
			if name == "" {
				name = "Imported"
			}
			p := &profile.Profile{
				ID:            uuid.NewString(),
				Kind:          profile.KindLocal,
				Name:          name,
				CreatedAt:     now,
				LastUpdatedAt: now,
			}
			attachServers(p, r.buildServers([]*uri.ServerConfig{cfg}), now)
			p.SortOrder = nextProfileSortOrder(tx)

			if err := tx.Create(mapper.ProfileToRecord(p)).Error; err != nil {
				return err
			}
		}

		return tx.Create(&model.Setting{Key: legacyMigratedKey, Value: "1"}).Error
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// WipeAll removes every profile and server.
func (r *Repository) WipeAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ServerRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.ProfileRecord{}).Error
	})
	if err != nil {
		return err
	}

	r.emitLocked()
	return nil
}

// ---- Internals ----

// emitLocked rebuilds the snapshots and hands them to subscribers before
// the mutator returns. Callers hold r.mu.
func (r *Repository) emitLocked() {
	snapshot, err := r.All()
	if err != nil {
		logger.Log.Errorf("failed to rebuild watch snapshot: %v", err)
		return
	}
	r.allWatch.publish(snapshot)

	var active *profile.Profile
	for i := range snapshot {
		if snapshot[i].IsActive {
			active = &snapshot[i]
			break
		}
	}
	r.activeWatch.publish(active)
}

func (r *Repository) toDomain(record *model.ProfileRecord) *profile.Profile {
	p := mapper.RecordToProfile(record)
	if p.Kind == profile.KindRemote && record.SubscriptionURL != nil {
		plain, err := r.crypt.Decrypt(record.SubscriptionURL)
		if err != nil {
			// Treated as absent per the decryption-failure contract.
			logger.Log.Warnf("profile %s: subscription url unreadable", record.ID)
			p.SubscriptionURL = nil
		} else {
			p.SubscriptionURL = plain
		}
	}
	return p
}

// parseServers converts fetched links into servers, deduplicating by
// configuration hash and counting rejects.
func (r *Repository) parseServers(links []string) ([]profile.Server, int) {
	var servers []profile.Server
	seen := make(map[string]bool)
	failures := 0
	now := time.Now()

	for _, link := range links {
		cfg, err := r.parsers.Parse(link)
		if err != nil {
			failures++
			continue
		}
		hash := cfg.Hash()
		if seen[hash] {
			continue
		}
		seen[hash] = true
		servers = append(servers, serverFromConfig(cfg, now))
	}
	return servers, failures
}

func (r *Repository) buildServers(configs []*uri.ServerConfig) []profile.Server {
	now := time.Now()
	servers := make([]profile.Server, 0, len(configs))
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		servers = append(servers, serverFromConfig(cfg, now))
	}
	return servers
}

func serverFromConfig(cfg *uri.ServerConfig, now time.Time) profile.Server {
	data, err := cfg.ConfigData()
	if err != nil {
		data = ""
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	remark := cfg.Remark
	if remark == "" {
		remark = geoip.Country(cfg.Host)
	}
	return profile.Server{
		ID:         uuid.NewString(),
		Name:       name,
		Host:       cfg.Host,
		Port:       cfg.Port,
		Protocol:   cfg.Protocol,
		ConfigData: data,
		Remark:     remark,
		CreatedAt:  now,
	}
}

// attachServers wires ownership and contiguous sort positions.
func attachServers(p *profile.Profile, servers []profile.Server, now time.Time) {
	for i := range servers {
		servers[i].ProfileID = p.ID
		servers[i].SortOrder = i
		if servers[i].CreatedAt.IsZero() {
			servers[i].CreatedAt = now
		}
	}
	p.Servers = servers
}

func nextProfileSortOrder(tx *gorm.DB) int {
	var next int
	tx.Model(&model.ProfileRecord{}).Select("COALESCE(MAX(sort_order)+1, 0)").Scan(&next)
	return next
}

func touchProfile(tx *gorm.DB, id string) error {
	return tx.Model(&model.ProfileRecord{}).
		Where("id = ?", id).
		Update("last_updated_at", time.Now()).Error
}

// checkExhaustive verifies ids is a permutation of existing.
func checkExhaustive(ids, existing []string) error {
	if len(ids) != len(existing) {
		return ErrReorderNotExhaustive
	}
	present := make(map[string]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !present[id] {
			return fmt.Errorf("%w: %s", ErrUnknownID, id)
		}
		if seen[id] {
			return ErrReorderNotExhaustive
		}
		seen[id] = true
	}
	return nil
}
