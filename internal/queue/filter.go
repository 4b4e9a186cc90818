package queue

import (
	"sort"
	"strings"

	"torrentstream/queueservice/internal/domain"
)

// Filter keeps the items matching both filters. In a combined queue the
// type filter selects a source id, otherwise a kind. "all" disables a
// filter.
func Filter(items []domain.QueueItem, typeFilter, statusFilter string, combined bool) []domain.QueueItem {
	typeFilter = domain.NormalizeFilter(typeFilter)
	statusFilter = domain.NormalizeFilter(statusFilter)

	out := make([]domain.QueueItem, 0, len(items))
	for _, item := range items {
		if typeFilter != domain.FilterAll && !matchesType(item, typeFilter, combined) {
			continue
		}
		if statusFilter != domain.FilterAll && !item.HasStatus(domain.StatusKey(strings.ToLower(statusFilter))) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func matchesType(item domain.QueueItem, filter string, combined bool) bool {
	if combined {
		return strings.EqualFold(item.SourceID, filter)
	}
	return strings.EqualFold(string(item.Kind), filter)
}

// Apply filters a copy of items and sorts it. A negative sortIndex leaves
// the merged order untouched.
func Apply(items []domain.QueueItem, typeFilter, statusFilter string, combined bool, sortIndex int, sortDir domain.SortDir) []domain.QueueItem {
	visible := Filter(items, typeFilter, statusFilter, combined)
	if sortIndex >= 0 && sortIndex < ColumnCount {
		Sort(visible, sortIndex, sortDir)
	}
	return visible
}

var statusOptionOrder = []domain.StatusKey{
	domain.StatusActive,
	domain.StatusDownloading,
	domain.StatusSeeding,
	domain.StatusQueued,
	domain.StatusChecking,
	domain.StatusPaused,
	domain.StatusStopped,
	domain.StatusCompleted,
	domain.StatusError,
}

// StatusOptions lists the status filter choices, "all" first.
func StatusOptions() []domain.FilterOption {
	options := make([]domain.FilterOption, 0, len(statusOptionOrder)+1)
	options = append(options, domain.FilterOption{Value: domain.FilterAll, Label: "All"})
	for _, key := range statusOptionOrder {
		options = append(options, domain.FilterOption{Value: string(key), Label: titleLabel(string(key))})
	}
	return options
}

// TypeOptions lists the type filter choices: one per configured source for
// a combined queue, otherwise the kinds present in items.
func TypeOptions(cfg domain.QueueConfig, items []domain.QueueItem) []domain.FilterOption {
	options := []domain.FilterOption{{Value: domain.FilterAll, Label: "All"}}
	if cfg.Combined() {
		for _, source := range cfg.Sources {
			label := source.AppName
			if label == "" {
				label = source.AppID
			}
			options = append(options, domain.FilterOption{Value: source.AppID, Label: label})
		}
		return options
	}

	kinds := make(map[domain.Kind]struct{})
	for _, item := range items {
		if item.Kind != "" {
			kinds[item.Kind] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(kinds))
	for kind := range kinds {
		sorted = append(sorted, string(kind))
	}
	sort.Strings(sorted)
	for _, kind := range sorted {
		options = append(options, domain.FilterOption{Value: kind, Label: titleLabel(kind)})
	}
	return options
}

func titleLabel(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
