package queue

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"torrentstream/queueservice/internal/backends"
)

var (
	ErrUnknownQueue       = errors.New("unknown queue")
	ErrInvalidColumn      = errors.New("invalid sort column")
	ErrNoSources          = errors.New("queue has no sources")
	ErrInvalidQueueConfig = errors.New("queue config requires appId")
	ErrStoreUnavailable   = errors.New("queue config store not configured")
)

// defaultMaxConcurrentSources limits how many source fetches of one cycle
// run at the same time.
const defaultMaxConcurrentSources = 10

const tracerName = "torrentstream/queueservice/queue"

// Service fetches and normalizes the sources of a queue. It keeps
// per-source diagnostics but never blocks a failing source.
type Service struct {
	fetcher       Fetcher
	backends      *backends.Registry
	timeout       time.Duration
	maxConcurrent int64
	logger        *slog.Logger
	tracer        trace.Tracer
	healthMu      sync.Mutex
	health        map[string]*sourceHealth
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMaxConcurrentSources(limit int) ServiceOption {
	return func(s *Service) {
		if limit > 0 {
			s.maxConcurrent = int64(limit)
		}
	}
}

func WithBackends(registry *backends.Registry) ServiceOption {
	return func(s *Service) {
		if registry != nil {
			s.backends = registry
		}
	}
}

func NewService(fetcher Fetcher, timeout time.Duration, opts ...ServiceOption) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	svc := &Service{
		fetcher:       fetcher,
		backends:      backends.NewRegistry(),
		timeout:       timeout,
		maxConcurrent: defaultMaxConcurrentSources,
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
		health:        make(map[string]*sourceHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}
