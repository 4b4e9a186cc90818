package sabnzbd

import (
	"encoding/json"

	"torrentstream/queueservice/internal/backends/common"
	"torrentstream/queueservice/internal/domain"
)

const Name = "sabnzbd"

const bytesPerMB = 1 << 20

var Rules = []common.Rule{
	{Keywords: []string{"fail", "error", "missing"}, Status: domain.StatusError},
	{Keywords: []string{"deleted"}, Status: domain.StatusStopped},
	{Keywords: []string{"pause"}, Status: domain.StatusPaused},
	{Keywords: []string{"downloading", "fetching", "grabbing"}, Status: domain.StatusDownloading},
	{Keywords: []string{"queued", "propagating"}, Status: domain.StatusQueued},
	{Keywords: []string{"check", "verif", "repair", "extract", "unpack", "moving", "running"}, Status: domain.StatusChecking},
	{Keywords: []string{"complete", "finished"}, Status: domain.StatusCompleted},
}

var Promotions = common.Promotions{
	Active:      []domain.StatusKey{domain.StatusDownloading},
	Downloading: []domain.StatusKey{domain.StatusQueued},
}

type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Kind() domain.Kind { return domain.KindUsenet }

func Classify(status string) common.Classification {
	return common.ClassifyState(Rules, Promotions, status)
}

func (b *Backend) Normalize(raw json.RawMessage, source domain.SourceContext) (domain.QueueItem, bool) {
	record, ok := common.DecodeRecord(raw)
	if !ok {
		return domain.QueueItem{}, false
	}
	status := record.String("status", "state")

	size, remaining, hasRemaining := sizes(record)
	rate := 0.0
	if kbPerSec, ok := record.Float("kbpersec"); ok {
		rate = kbPerSec * 1024
	}

	progress := 0.0
	if percent, ok := record.Float("percentage"); ok {
		progress = percent
	} else if hasRemaining {
		progress = common.ProgressFromRemaining(size, remaining)
	}

	return common.BuildItem(common.Fields{
		Kind:        domain.KindUsenet,
		Title:       record.String("filename", "name", "nzb_name"),
		NativeState: status,
		Secondary:   common.FirstNonEmpty(category(record), common.FormatRate(rate)),
		SizeBytes:   size,
		Progress:    progress,
		TimeLeft:    timeLeft(record, remaining, rate),
		Status:      Classify(status),
	}, source), true
}

// sizes returns total and remaining bytes, preferring the MB fields over
// the pre-formatted "size"/"sizeleft" strings.
func sizes(record common.Record) (float64, float64, bool) {
	total := 0.0
	if mb, ok := record.Float("mb"); ok {
		total = mb * bytesPerMB
	} else if raw := record.String("size"); raw != "" {
		total = float64(common.ParseHumanSize(raw))
	} else if value, ok := record.Float("bytes"); ok {
		total = value
	}

	if mbLeft, ok := record.Float("mbleft"); ok {
		return total, mbLeft * bytesPerMB, true
	}
	if raw := record.String("sizeleft"); raw != "" {
		return total, float64(common.ParseHumanSize(raw)), true
	}
	return total, 0, false
}

func category(record common.Record) string {
	value := record.String("cat", "category")
	if value == "*" {
		return ""
	}
	return value
}

func timeLeft(record common.Record, remaining, rate float64) string {
	if raw := record.String("timeleft"); raw != "" {
		if seconds, ok := common.ParseClock(raw); ok {
			return common.FormatDuration(seconds)
		}
		return raw
	}
	if rate > 0 && remaining > 0 {
		return common.FormatDuration(remaining / rate)
	}
	return common.Placeholder
}
