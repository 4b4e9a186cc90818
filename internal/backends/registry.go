package backends

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"torrentstream/queueservice/internal/backends/nzbget"
	"torrentstream/queueservice/internal/backends/qbittorrent"
	"torrentstream/queueservice/internal/backends/sabnzbd"
	"torrentstream/queueservice/internal/backends/transmission"
	"torrentstream/queueservice/internal/domain"
)

var ErrUnknownBackend = errors.New("unknown backend type")

// Normalizer converts one raw queue record of a specific backend into a
// QueueItem. It reports false for records it cannot classify at all.
type Normalizer interface {
	Name() string
	Kind() domain.Kind
	Normalize(raw json.RawMessage, source domain.SourceContext) (domain.QueueItem, bool)
}

type Registry struct {
	byName  map[string]Normalizer
	aliases []alias
}

type alias struct {
	token string
	name  string
}

// NewRegistry returns a registry with every supported backend.
func NewRegistry() *Registry {
	registry := &Registry{byName: make(map[string]Normalizer)}
	registry.Register(transmission.New(), "transmission", "tr")
	registry.Register(qbittorrent.New(), "qbittorrent", "qbit", "qbt")
	registry.Register(sabnzbd.New(), "sabnzbd", "sab")
	registry.Register(nzbget.New(), "nzbget")
	return registry
}

// Register adds a normalizer. Tokens are used to infer the backend from an
// app id such as "qbittorrent-seedbox"; longer tokens are matched first.
func (r *Registry) Register(normalizer Normalizer, tokens ...string) {
	if normalizer == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(normalizer.Name()))
	if name == "" {
		return
	}
	r.byName[name] = normalizer
	for _, token := range tokens {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		if _, exists := r.byName[token]; !exists {
			r.byName[token] = normalizer
		}
		r.aliases = append(r.aliases, alias{token: token, name: name})
	}
	sortAliases(r.aliases)
}

func (r *Registry) Lookup(name string) (Normalizer, bool) {
	normalizer, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return normalizer, ok
}

// Resolve picks the normalizer for a source: an explicit type wins,
// otherwise the backend is inferred from the app id.
func (r *Registry) Resolve(explicitType, appID string) (Normalizer, error) {
	if explicit := strings.TrimSpace(explicitType); explicit != "" {
		if normalizer, ok := r.Lookup(explicit); ok {
			return normalizer, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, explicit)
	}
	id := strings.ToLower(strings.TrimSpace(appID))
	if normalizer, ok := r.Lookup(id); ok {
		return normalizer, nil
	}
	for _, candidate := range r.aliases {
		if len(candidate.token) < 3 {
			continue
		}
		if strings.Contains(id, candidate.token) {
			return r.byName[candidate.name], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, appID)
}

func sortAliases(items []alias) {
	sort.SliceStable(items, func(i, j int) bool {
		return len(items[i].token) > len(items[j].token)
	})
}
