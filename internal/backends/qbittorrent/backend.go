package qbittorrent

import (
	"encoding/json"

	"torrentstream/queueservice/internal/backends/common"
	"torrentstream/queueservice/internal/domain"
)

const Name = "qbittorrent"

// infiniteETA is what the WebUI API reports when no ETA can be computed.
const infiniteETA = 8640000

// Rules are ordered; the first group whose keyword occurs in the state
// string wins. "stalledUP" must reach the seeding group before "stalled"
// is considered, and "queuedUP" resolves to seeding as well.
var Rules = []common.Rule{
	{Keywords: []string{"error", "missingfiles"}, Status: domain.StatusError},
	{Keywords: []string{"paused", "stopped"}, Status: domain.StatusPaused},
	{Keywords: []string{"downloading", "forceddl", "metadl"}, Status: domain.StatusDownloading},
	{Keywords: []string{"uploading", "forcedup", "stalledup", "queuedup", "seeding"}, Status: domain.StatusSeeding},
	{Keywords: []string{"queued"}, Status: domain.StatusQueued},
	{Keywords: []string{"checking", "allocating", "moving"}, Status: domain.StatusChecking},
	{Keywords: []string{"stalled"}, Status: domain.StatusDownloading},
	{Keywords: []string{"completed"}, Status: domain.StatusCompleted},
}

var Promotions = common.Promotions{
	Active:      []domain.StatusKey{domain.StatusDownloading, domain.StatusSeeding},
	Downloading: []domain.StatusKey{domain.StatusQueued, domain.StatusChecking},
}

var (
	sizeFields      = []string{"total_size", "size", "selected_size", "totalSize"}
	remainingFields = []string{"amount_left", "amountLeft", "left"}
	rateFields      = []string{"dlspeed", "dl_speed", "download_speed"}
)

type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Kind() domain.Kind { return domain.KindTorrent }

func Classify(state string) common.Classification {
	return common.ClassifyState(Rules, Promotions, state)
}

func (b *Backend) Normalize(raw json.RawMessage, source domain.SourceContext) (domain.QueueItem, bool) {
	record, ok := common.DecodeRecord(raw)
	if !ok {
		return domain.QueueItem{}, false
	}
	state := record.String("state", "status")

	size, _ := record.Float(sizeFields...)
	remaining, hasRemaining := record.Float(remainingFields...)
	rate, _ := record.Float(rateFields...)

	progress := 0.0
	if fraction, ok := record.Float("progress"); ok {
		progress = fraction * 100
	} else if hasRemaining {
		progress = common.ProgressFromRemaining(size, remaining)
	}

	timeLeft := common.Placeholder
	if eta, ok := record.Float("eta"); ok {
		if eta < infiniteETA {
			timeLeft = common.FormatDuration(eta)
		}
	} else if hasRemaining && rate > 0 {
		timeLeft = common.FormatDuration(remaining / rate)
	}

	return common.BuildItem(common.Fields{
		Kind:        domain.KindTorrent,
		Title:       record.String("name", "title"),
		NativeState: state,
		Secondary:   common.FirstNonEmpty(common.FormatRate(rate), record.String("category")),
		SizeBytes:   size,
		Progress:    progress,
		TimeLeft:    timeLeft,
		Status:      Classify(state),
	}, source), true
}
