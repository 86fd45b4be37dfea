package knowledge

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

type StorageConfig struct {
	Dialect string
}

type Config struct {
	mu sync.RWMutex

	ClassifierAvailable bool
	ConfidenceThreshold float64
	MinTrainingRecords  int
	MinLexicalRecords   int
	ContextSize         int
	ContextWindow       int
	SessionID           uuid.UUID
	Storage             StorageConfig
}

func newConfig() *Config {
	return &Config{
		ClassifierAvailable: os.Getenv("KURO_DISABLE_CLASSIFIER") != "1",
		ConfidenceThreshold: 0.55,
		MinTrainingRecords:  5,
		MinLexicalRecords:   3,
		ContextSize:         10,
		ContextWindow:       3,
		SessionID:           uuid.New(),
	}
}

func (c *Config) classifierOn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ClassifierAvailable
}

// SetClassifierAvailable toggles the classifier step at runtime.
func (c *Config) SetClassifierAvailable(on bool) {
	c.mu.Lock()
	c.ClassifierAvailable = on
	c.mu.Unlock()
}
