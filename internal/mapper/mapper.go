// Package mapper translates between the persistence rows, the domain model,
// and the transport config records the tunnel engine consumes. Everything
// here is pure; encryption of sensitive columns happens in the repository.
package mapper

import (
	"cybervpn/internal/logger"
	"cybervpn/internal/model"
	"cybervpn/internal/profile"
	"cybervpn/internal/transport"
	"cybervpn/internal/uri"
)

// RecordToProfile converts a persistence row (plus its server rows) into
// the domain entity.
func RecordToProfile(r *model.ProfileRecord) *profile.Profile {
	p := &profile.Profile{
		ID:            r.ID,
		Kind:          kindFromString(r.Kind),
		Name:          r.Name,
		IsActive:      r.IsActive,
		SortOrder:     r.SortOrder,
		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}

	switch p.Kind {
	case profile.KindRemote:
		p.SubscriptionURL = r.SubscriptionURL
		p.UploadBytes = r.UploadBytes
		p.DownloadBytes = r.DownloadBytes
		p.TotalBytes = r.TotalBytes
		p.ExpiresAt = r.ExpiresAt
		p.UpdateIntervalMinutes = r.UpdateIntervalMinutes
		p.SupportURL = r.SupportURL
		p.TestURL = r.TestURL
	case profile.KindLocal:
		// No subscription fields.
	}

	p.Servers = make([]profile.Server, 0, len(r.Servers))
	for i := range r.Servers {
		p.Servers = append(p.Servers, *RecordToServer(&r.Servers[i]))
	}
	return p
}

// ProfileToRecord is the inverse of RecordToProfile.
func ProfileToRecord(p *profile.Profile) *model.ProfileRecord {
	r := &model.ProfileRecord{
		ID:            p.ID,
		Kind:          string(p.Kind),
		Name:          p.Name,
		IsActive:      p.IsActive,
		SortOrder:     p.SortOrder,
		CreatedAt:     p.CreatedAt,
		LastUpdatedAt: p.LastUpdatedAt,
	}

	switch p.Kind {
	case profile.KindRemote:
		r.SubscriptionURL = p.SubscriptionURL
		r.UploadBytes = p.UploadBytes
		r.DownloadBytes = p.DownloadBytes
		r.TotalBytes = p.TotalBytes
		r.ExpiresAt = p.ExpiresAt
		r.UpdateIntervalMinutes = p.UpdateIntervalMinutes
		r.SupportURL = p.SupportURL
		r.TestURL = p.TestURL
	case profile.KindLocal:
	}

	r.Servers = make([]model.ServerRecord, 0, len(p.Servers))
	for i := range p.Servers {
		r.Servers = append(r.Servers, *ServerToRecord(&p.Servers[i]))
	}
	return r
}

func RecordToServer(r *model.ServerRecord) *profile.Server {
	return &profile.Server{
		ID:         r.ID,
		ProfileID:  r.ProfileID,
		Name:       r.Name,
		Host:       r.Host,
		Port:       r.Port,
		Protocol:   protocolFromString(r.Protocol),
		ConfigData: r.ConfigData,
		Remark:     r.Remark,
		IsFavorite: r.IsFavorite,
		SortOrder:  r.SortOrder,
		LatencyMs:  r.LatencyMs,
		CreatedAt:  r.CreatedAt,
	}
}

func ServerToRecord(s *profile.Server) *model.ServerRecord {
	return &model.ServerRecord{
		ID:         s.ID,
		ProfileID:  s.ProfileID,
		Name:       s.Name,
		Host:       s.Host,
		Port:       s.Port,
		Protocol:   string(s.Protocol),
		ConfigData: s.ConfigData,
		Remark:     s.Remark,
		IsFavorite: s.IsFavorite,
		SortOrder:  s.SortOrder,
		LatencyMs:  s.LatencyMs,
		CreatedAt:  s.CreatedAt,
	}
}

// ServerToTransport produces the record the tunnel engine consumes.
func ServerToTransport(s *profile.Server) transport.Config {
	return transport.Config{
		ID:            s.ID,
		Name:          s.Name,
		ServerAddress: s.Host,
		Port:          s.Port,
		Protocol:      string(s.Protocol),
		ConfigData:    s.ConfigData,
		Remark:        s.Remark,
		IsFavorite:    s.IsFavorite,
	}
}

// protocolFromString matches case-insensitively and falls back to vless for
// unrecognized values. The fallback keeps rows written by older builds
// loadable; the warning makes silent data corruption visible in logs.
func protocolFromString(s string) uri.Protocol {
	if p, ok := uri.ParseProtocol(s); ok {
		return p
	}
	logger.Log.Warnf("mapper: unrecognized protocol %q, defaulting to vless", s)
	return uri.ProtocolVLESS
}

func kindFromString(s string) profile.Kind {
	if s == string(profile.KindLocal) {
		return profile.KindLocal
	}
	return profile.KindRemote
}
