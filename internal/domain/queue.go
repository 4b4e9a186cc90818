package domain

import (
	"strings"
	"time"
)

type Kind string

const (
	KindTorrent Kind = "torrent"
	KindUsenet  Kind = "usenet"
)

type StatusKey string

const (
	StatusQueued      StatusKey = "queued"
	StatusDownloading StatusKey = "downloading"
	StatusSeeding     StatusKey = "seeding"
	StatusChecking    StatusKey = "checking"
	StatusPaused      StatusKey = "paused"
	StatusStopped     StatusKey = "stopped"
	StatusError       StatusKey = "error"
	StatusCompleted   StatusKey = "completed"

	// Secondary-only tags. They never appear as a primary StatusKey.
	StatusActive   StatusKey = "active"
	StatusFinished StatusKey = "finished"
)

const FilterAll = "all"

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

type LoadState string

const (
	LoadStateLoading     LoadState = "loading"
	LoadStateReady       LoadState = "ready"
	LoadStateUnavailable LoadState = "unavailable"
)

type QueueItem struct {
	Kind       Kind        `json:"kind"`
	Title      string      `json:"title"`
	Detail     string      `json:"detail"`
	SubDetail  string      `json:"subDetail"`
	Quality    string      `json:"quality"`
	Protocol   Kind        `json:"protocol"`
	TimeLeft   string      `json:"timeLeft"`
	Progress   float64     `json:"progress"`
	StatusKey  StatusKey   `json:"statusKey"`
	StatusKeys []StatusKey `json:"statusKeys"`
	SourceID   string      `json:"sourceId"`
	SourceName string      `json:"sourceName,omitempty"`
}

// HasStatus reports whether the item carries key either as its primary
// status or as one of its tags.
func (i QueueItem) HasStatus(key StatusKey) bool {
	if len(i.StatusKeys) == 0 {
		return i.StatusKey == key
	}
	for _, candidate := range i.StatusKeys {
		if candidate == key {
			return true
		}
	}
	return false
}

type SourceDescriptor struct {
	AppID   string `json:"appId" yaml:"appId" bson:"appId"`
	AppName string `json:"appName" yaml:"appName" bson:"appName"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty" bson:"type,omitempty"`
}

type QueueConfig struct {
	AppID   string             `json:"appId" yaml:"appId" bson:"appId"`
	AppName string             `json:"appName" yaml:"appName" bson:"appName"`
	Prefix  string             `json:"prefix" yaml:"prefix" bson:"prefix"`
	Type    string             `json:"type,omitempty" yaml:"type,omitempty" bson:"type,omitempty"`
	Sources []SourceDescriptor `json:"sources,omitempty" yaml:"sources,omitempty" bson:"sources,omitempty"`
}

func (c QueueConfig) Combined() bool {
	return len(c.Sources) > 0
}

// Key identifies a queue within a resolved configuration.
func (c QueueConfig) Key() string {
	return strings.ToLower(strings.TrimSpace(c.AppID)) + "|" + strings.ToLower(strings.TrimSpace(c.Prefix))
}

// ID is the lowercased prefix, or the app id when no prefix is set. It is
// the queue's handle unless another queue shares it.
func (c QueueConfig) ID() string {
	if prefix := strings.TrimSpace(c.Prefix); prefix != "" {
		return strings.ToLower(prefix)
	}
	return strings.ToLower(strings.TrimSpace(c.AppID))
}

// QualifiedID combines app id and prefix. It addresses a queue whose
// prefix is shared with another queue.
func (c QueueConfig) QualifiedID() string {
	appID := strings.ToLower(strings.TrimSpace(c.AppID))
	if prefix := strings.TrimSpace(c.Prefix); prefix != "" {
		return appID + "-" + strings.ToLower(prefix)
	}
	return appID
}

// EffectiveSources returns the configured sources, or the queue's own app
// as the single implicit source.
func (c QueueConfig) EffectiveSources() []SourceDescriptor {
	if len(c.Sources) > 0 {
		return c.Sources
	}
	return []SourceDescriptor{{AppID: c.AppID, AppName: c.AppName, Type: c.Type}}
}

type SourceContext struct {
	Combined   bool
	SourceID   string
	SourceName string
}

type SourceStatus struct {
	SourceID   string `json:"sourceId"`
	SourceName string `json:"sourceName"`
	Backend    string `json:"backend,omitempty"`
	OK         bool   `json:"ok"`
	Count      int    `json:"count"`
	Dropped    int    `json:"dropped,omitempty"`
	Error      string `json:"error,omitempty"`
	LatencyMS  int64  `json:"latencyMs"`
}

type QueueState struct {
	Items        []QueueItem
	SortIndex    int
	SortDir      SortDir
	TypeFilter   string
	StatusFilter string
}

func NewQueueState() QueueState {
	return QueueState{
		SortIndex:    -1,
		SortDir:      SortAsc,
		TypeFilter:   FilterAll,
		StatusFilter: FilterAll,
	}
}

type FilterOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type QueueView struct {
	ID            string         `json:"id"`
	AppID         string         `json:"appId"`
	AppName       string         `json:"appName"`
	Prefix        string         `json:"prefix"`
	Combined      bool           `json:"combined"`
	State         LoadState      `json:"state"`
	Items         []QueueItem    `json:"items"`
	TotalItems    int            `json:"totalItems"`
	SortIndex     int            `json:"sortIndex"`
	SortDir       SortDir        `json:"sortDir"`
	TypeFilter    string         `json:"typeFilter"`
	StatusFilter  string         `json:"statusFilter"`
	TypeOptions   []FilterOption `json:"typeOptions"`
	StatusOptions []FilterOption `json:"statusOptions"`
	Sources       []SourceStatus `json:"sources"`
	Cycle         uint64         `json:"cycle"`
	UpdatedAt     *time.Time     `json:"updatedAt,omitempty"`
}

type QueueSummary struct {
	ID       string    `json:"id"`
	AppID    string    `json:"appId"`
	AppName  string    `json:"appName"`
	Prefix   string    `json:"prefix"`
	Combined bool      `json:"combined"`
	Sources  int       `json:"sources"`
	State    LoadState `json:"state"`
	Items    int       `json:"items"`
}

type SourceDiagnostics struct {
	SourceID            string     `json:"sourceId"`
	Backend             string     `json:"backend,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastError           string     `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool       `json:"lastTimeout,omitempty"`
	LastItemCount       int        `json:"lastItemCount"`
	TotalRequests       int64      `json:"totalRequests,omitempty"`
	TotalFailures       int64      `json:"totalFailures,omitempty"`
	TimeoutCount        int64      `json:"timeoutCount,omitempty"`
}

func NormalizeSortDir(raw string) SortDir {
	switch SortDir(strings.ToLower(strings.TrimSpace(raw))) {
	case SortDesc:
		return SortDesc
	default:
		return SortAsc
	}
}

// NormalizeFilter maps an empty selection to "all".
func NormalizeFilter(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || strings.EqualFold(value, FilterAll) {
		return FilterAll
	}
	return value
}
