package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"torrentstream/queueservice/internal/domain"
)

// QueueFile is the on-disk queue configuration. "queue" is the
// single-queue shorthand, "queues" the list form; both may be present.
type QueueFile struct {
	Queue  *domain.QueueConfig  `yaml:"queue,omitempty"`
	Queues []domain.QueueConfig `yaml:"queues,omitempty"`
}

// LoadQueueFile reads the queue file at path. An empty path yields an
// empty configuration.
func LoadQueueFile(path string) (QueueFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return QueueFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return QueueFile{}, fmt.Errorf("failed to read queue file: %w", err)
	}
	return ParseQueueFile(data)
}

func ParseQueueFile(data []byte) (QueueFile, error) {
	var file QueueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return QueueFile{}, fmt.Errorf("failed to parse queue file: %w", err)
	}
	return file, nil
}
