package transmission

import (
	"encoding/json"

	"torrentstream/queueservice/internal/backends/common"
	"torrentstream/queueservice/internal/domain"
)

const Name = "transmission"

// Lifecycle codes reported in the "status" field of torrent-get.
const (
	codeStopped      = 0
	codeCheckWait    = 1
	codeChecking     = 2
	codeDownloadWait = 3
	codeDownloading  = 4
	codeSeedWait     = 5
	codeSeeding      = 6
)

var codeStatus = map[int64]domain.StatusKey{
	codeStopped:      domain.StatusStopped,
	codeCheckWait:    domain.StatusChecking,
	codeChecking:     domain.StatusChecking,
	codeDownloadWait: domain.StatusQueued,
	codeDownloading:  domain.StatusDownloading,
	codeSeedWait:     domain.StatusSeeding,
	codeSeeding:      domain.StatusSeeding,
}

var codeLabel = map[int64]string{
	codeStopped:      "Stopped",
	codeCheckWait:    "Queued to check",
	codeChecking:     "Checking",
	codeDownloadWait: "Queued",
	codeDownloading:  "Downloading",
	codeSeedWait:     "Queued to seed",
	codeSeeding:      "Seeding",
}

var (
	sizeFields      = []string{"sizeWhenDone", "totalSize", "size", "length"}
	remainingFields = []string{"leftUntilDone", "left", "remaining"}
	rateFields      = []string{"rateDownload", "downloadRate", "rate"}
)

// State is the subset of a torrent-get entry that drives classification.
type State struct {
	Code        int64
	HasCode     bool
	IsFinished  bool
	IsStalled   bool
	ErrorCode   int64
	ErrorString string
}

type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) Kind() domain.Kind { return domain.KindTorrent }

// Classify resolves the canonical status. isFinished wins over the code
// table; isStalled only changes the label.
func Classify(state State) common.Classification {
	primary := domain.StatusQueued
	switch {
	case state.IsFinished:
		primary = domain.StatusSeeding
	case state.HasCode:
		if status, ok := codeStatus[state.Code]; ok {
			primary = status
		}
	}

	var extra []domain.StatusKey
	switch primary {
	case domain.StatusDownloading, domain.StatusSeeding:
		extra = append(extra, domain.StatusActive)
	case domain.StatusQueued, domain.StatusChecking:
		extra = append(extra, domain.StatusDownloading)
	case domain.StatusStopped:
		extra = append(extra, domain.StatusPaused)
	}
	if state.IsFinished {
		extra = append(extra, domain.StatusFinished, domain.StatusCompleted)
	}
	if state.ErrorCode > 0 || state.ErrorString != "" {
		extra = append(extra, domain.StatusError)
	}
	return common.Classification{Key: primary, Keys: common.Tags(primary, common.Promotions{}, extra...)}
}

// Label is the human-readable state shown in the detail columns.
func Label(state State) string {
	if state.IsFinished {
		return "Finished"
	}
	if state.IsStalled && (state.Code == codeDownloading || state.Code == codeSeeding) {
		return "Stalled"
	}
	if label, ok := codeLabel[state.Code]; ok && state.HasCode {
		return label
	}
	return "Unknown"
}

func readState(record common.Record) State {
	code, hasCode := record.Int("status")
	return State{
		Code:        code,
		HasCode:     hasCode,
		IsFinished:  record.Bool("isFinished"),
		IsStalled:   record.Bool("isStalled"),
		ErrorCode:   int64Or(record.Int("error")),
		ErrorString: record.String("errorString"),
	}
}

func (b *Backend) Normalize(raw json.RawMessage, source domain.SourceContext) (domain.QueueItem, bool) {
	record, ok := common.DecodeRecord(raw)
	if !ok {
		return domain.QueueItem{}, false
	}
	state := readState(record)

	size, _ := record.Float(sizeFields...)
	remaining, hasRemaining := record.Float(remainingFields...)
	rate, _ := record.Float(rateFields...)

	progress := 0.0
	if fraction, ok := record.Float("percentDone"); ok {
		progress = fraction * 100
	} else if hasRemaining {
		progress = common.ProgressFromRemaining(size, remaining)
	}

	timeLeft := common.Placeholder
	if eta, ok := record.Float("eta"); ok {
		timeLeft = common.FormatDuration(eta)
	} else if hasRemaining && rate > 0 {
		timeLeft = common.FormatDuration(remaining / rate)
	}

	category := ""
	if labels := record.Strings("labels"); len(labels) > 0 {
		category = labels[0]
	}

	return common.BuildItem(common.Fields{
		Kind:        domain.KindTorrent,
		Title:       record.String("name"),
		NativeState: Label(state),
		Secondary:   common.FirstNonEmpty(common.FormatRate(rate), category),
		SizeBytes:   size,
		Progress:    progress,
		TimeLeft:    timeLeft,
		Status:      Classify(state),
	}, source), true
}

func int64Or(value int64, _ bool) int64 {
	return value
}
