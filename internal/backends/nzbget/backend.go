package nzbget

import (
	"encoding/json"

	"torrentstream/queueservice/internal/backends/common"
	"torrentstream/queueservice/internal/domain"
)

const Name = "nzbget"

const bytesPerMB = 1 << 20

// NZBGet reports upper-case states such as "PP_QUEUED" or
// "VERIFYING_SOURCES"; matching is case-insensitive.
var Rules = []common.Rule{
	{Keywords: []string{"failure", "fail", "error"}, Status: domain.StatusError},
	{Keywords: []string{"deleted"}, Status: domain.StatusStopped},
	{Keywords: []string{"paused"}, Status: domain.StatusPaused},
	{Keywords: []string{"downloading", "fetching"}, Status: domain.StatusDownloading},
	{Keywords: []string{"queued"}, Status: domain.StatusQueued},
	{Keywords: []string{"loading_pars", "verifying", "repairing", "renaming", "unpacking", "moving", "executing_script", "post"}, Status: domain.StatusChecking},
	{Keywords: []string{"pp_finished", "success", "finished"}, Status: domain.StatusCompleted},
}

var Promotions = common.Promotions{
	Active:      []domain.StatusKey{domain.StatusDownloading},
	Downloading: []domain.StatusKey{domain.StatusChecking},
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
	status := record.String("Status", "status")

	size := splitSize(record, "FileSizeLo", "FileSizeHi", "FileSizeMB")
	remaining := splitSize(record, "RemainingSizeLo", "RemainingSizeHi", "RemainingSizeMB")
	hasRemaining := record.Has("RemainingSizeLo", "RemainingSizeMB")
	rate, _ := record.Float("DownloadRate", "downloadRate")

	progress := 0.0
	if hasRemaining {
		progress = common.ProgressFromRemaining(size, remaining)
	} else if downloadedMB, ok := record.Float("DownloadedSizeMB"); ok && size > 0 {
		progress = common.Clamp(downloadedMB*bytesPerMB/size*100, 0, 100)
	}

	timeLeft := common.Placeholder
	if rate > 0 && remaining > 0 {
		timeLeft = common.FormatDuration(remaining / rate)
	}

	return common.BuildItem(common.Fields{
		Kind:        domain.KindUsenet,
		Title:       record.String("NZBNicename", "NZBName", "name"),
		NativeState: status,
		Secondary:   common.FirstNonEmpty(record.String("Category", "category"), common.FormatRate(rate)),
		SizeBytes:   size,
		Progress:    progress,
		TimeLeft:    timeLeft,
		Status:      Classify(status),
	}, source), true
}

// splitSize combines the 32-bit Lo/Hi halves NZBGet uses for byte counts,
// falling back to the MB field.
func splitSize(record common.Record, loKey, hiKey, mbKey string) float64 {
	lo, hasLo := record.Float(loKey)
	hi, _ := record.Float(hiKey)
	if hasLo && (lo > 0 || hi > 0) {
		return hi*4294967296 + lo
	}
	if mb, ok := record.Float(mbKey); ok {
		return mb * bytesPerMB
	}
	return 0
}
