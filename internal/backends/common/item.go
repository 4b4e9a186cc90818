package common

import (
	"math"

	"torrentstream/queueservice/internal/domain"
)

// Fields carries the backend-independent values a normalizer extracted from
// one raw record.
type Fields struct {
	Kind        domain.Kind
	Title       string
	NativeState string
	// Secondary is the rate or category string shown next to the state.
	Secondary string
	SizeBytes float64
	Progress  float64
	TimeLeft  string
	Status    Classification
}

const unknownTitle = "Unknown"

// BuildItem assembles a QueueItem and relabels detail columns according to
// whether the item belongs to a combined queue.
func BuildItem(fields Fields, source domain.SourceContext) domain.QueueItem {
	title := FirstNonEmpty(fields.Title)
	if title == "" {
		title = unknownTitle
	}

	timeLeft := fields.TimeLeft
	if timeLeft == "" {
		timeLeft = Placeholder
	}

	progress := fields.Progress
	if math.IsNaN(progress) || math.IsInf(progress, 0) {
		progress = 0
	}
	progress = Clamp(progress, 0, 100)

	status := fields.Status
	if status.Key == "" {
		status.Key = domain.StatusQueued
	}
	if len(status.Keys) == 0 {
		status.Keys = []domain.StatusKey{status.Key}
	}

	item := domain.QueueItem{
		Kind:       fields.Kind,
		Title:      title,
		Quality:    FormatBytes(fields.SizeBytes),
		Protocol:   fields.Kind,
		TimeLeft:   timeLeft,
		Progress:   progress,
		StatusKey:  status.Key,
		StatusKeys: status.Keys,
		SourceID:   source.SourceID,
		SourceName: source.SourceName,
	}

	if source.Combined {
		item.Detail = FirstNonEmpty(source.SourceName, source.SourceID)
		item.SubDetail = JoinDetail(fields.NativeState, fields.Secondary)
	} else {
		item.Detail = FirstNonEmpty(fields.NativeState)
		item.SubDetail = FirstNonEmpty(fields.Secondary)
	}
	return item
}
