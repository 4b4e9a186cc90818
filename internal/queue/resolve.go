package queue

import (
	"fmt"
	"strings"

	"torrentstream/queueservice/internal/domain"
)

// ResolveQueues merges the single-queue descriptor with the list form.
// Entries without an app id are dropped, duplicates (same app id and
// prefix, case-insensitive) keep the first occurrence.
func ResolveQueues(single *domain.QueueConfig, list []domain.QueueConfig) []domain.QueueConfig {
	candidates := make([]domain.QueueConfig, 0, len(list)+1)
	if single != nil {
		candidates = append(candidates, *single)
	}
	candidates = append(candidates, list...)

	seen := make(map[string]struct{}, len(candidates))
	resolved := make([]domain.QueueConfig, 0, len(candidates))
	for _, candidate := range candidates {
		cfg := normalizeConfig(candidate)
		if cfg.AppID == "" {
			continue
		}
		key := cfg.Key()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		resolved = append(resolved, cfg)
	}
	return resolved
}

func normalizeConfig(cfg domain.QueueConfig) domain.QueueConfig {
	out := domain.QueueConfig{
		AppID:   strings.TrimSpace(cfg.AppID),
		AppName: strings.TrimSpace(cfg.AppName),
		Prefix:  strings.TrimSpace(cfg.Prefix),
		Type:    strings.TrimSpace(cfg.Type),
	}
	if out.AppName == "" {
		out.AppName = out.AppID
	}
	for _, source := range cfg.Sources {
		appID := strings.TrimSpace(source.AppID)
		if appID == "" {
			continue
		}
		name := strings.TrimSpace(source.AppName)
		if name == "" {
			name = appID
		}
		out.Sources = append(out.Sources, domain.SourceDescriptor{
			AppID:   appID,
			AppName: name,
			Type:    strings.TrimSpace(source.Type),
		})
	}
	return out
}

// reservedHandles are path segments under /queues/ that name fixed routes.
var reservedHandles = map[string]struct{}{
	"settings": {},
	"sources":  {},
}

func isReservedHandle(handle string) bool {
	_, reserved := reservedHandles[handle]
	return reserved
}

// QueueHandles returns the id each resolved descriptor is addressed by. A
// prefix used by a single queue is its handle; a prefix shared by several
// queues, or one that names a fixed route, is qualified with the app id.
// Descriptors left without a usable handle get "".
func QueueHandles(resolved []domain.QueueConfig) []string {
	counts := make(map[string]int, len(resolved))
	for _, cfg := range resolved {
		counts[cfg.ID()]++
	}
	handles := make([]string, len(resolved))
	taken := make(map[string]struct{}, len(resolved))
	for i, cfg := range resolved {
		handle := cfg.ID()
		if counts[handle] > 1 || isReservedHandle(handle) {
			handle = cfg.QualifiedID()
		}
		if isReservedHandle(handle) {
			continue
		}
		if _, exists := taken[handle]; exists {
			continue
		}
		taken[handle] = struct{}{}
		handles[i] = handle
	}
	return handles
}

// ValidateConfig reports ErrInvalidQueueConfig for descriptors that
// ResolveQueues would drop or that could only be reached through a fixed
// route.
func ValidateConfig(cfg domain.QueueConfig) error {
	if strings.TrimSpace(cfg.AppID) == "" {
		return ErrInvalidQueueConfig
	}
	if id := cfg.ID(); isReservedHandle(id) {
		return fmt.Errorf("%w: queue id %q is reserved", ErrInvalidQueueConfig, id)
	}
	return nil
}
