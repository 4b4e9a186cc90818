package common

import (
	"strings"

	"torrentstream/queueservice/internal/domain"
)

// Rule maps a group of status keywords to a canonical status. Keywords are
// matched as case-insensitive substrings of the backend's state string.
type Rule struct {
	Keywords []string
	Status   domain.StatusKey
}

func (r Rule) matches(state string) bool {
	for _, keyword := range r.Keywords {
		if strings.Contains(state, keyword) {
			return true
		}
	}
	return false
}

// Promotions lists which primary statuses additionally gain the coarse
// "active" and "downloading" tags.
type Promotions struct {
	Active      []domain.StatusKey
	Downloading []domain.StatusKey
}

type Classification struct {
	Key  domain.StatusKey
	Keys []domain.StatusKey
}

// Classify walks rules top to bottom and returns the status of the first
// matching group, or queued when nothing matches.
func Classify(rules []Rule, state string) domain.StatusKey {
	normalized := strings.ToLower(strings.TrimSpace(state))
	if normalized == "" {
		return domain.StatusQueued
	}
	for _, rule := range rules {
		if rule.matches(normalized) {
			return rule.Status
		}
	}
	return domain.StatusQueued
}

// Tags builds the tag set for primary: the primary itself first, then the
// promotions that apply, then extra tags, without duplicates.
func Tags(primary domain.StatusKey, promotions Promotions, extra ...domain.StatusKey) []domain.StatusKey {
	keys := []domain.StatusKey{primary}
	add := func(key domain.StatusKey) {
		for _, existing := range keys {
			if existing == key {
				return
			}
		}
		keys = append(keys, key)
	}
	if containsStatus(promotions.Active, primary) {
		add(domain.StatusActive)
	}
	if containsStatus(promotions.Downloading, primary) {
		add(domain.StatusDownloading)
	}
	for _, key := range extra {
		if key != "" {
			add(key)
		}
	}
	return keys
}

// ClassifyState is Classify followed by Tags.
func ClassifyState(rules []Rule, promotions Promotions, state string) Classification {
	key := Classify(rules, state)
	return Classification{Key: key, Keys: Tags(key, promotions)}
}

func containsStatus(list []domain.StatusKey, key domain.StatusKey) bool {
	for _, candidate := range list {
		if candidate == key {
			return true
		}
	}
	return false
}
