package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/lucron9090/cruis-api/internal/common"
	"github.com/lucron9090/cruis-api/internal/interfaces"
	"github.com/lucron9090/cruis-api/internal/storage/badger"
	"github.com/lucron9090/cruis-api/internal/storage/memory"
)

// NewSessionStore creates a session store based on config: a durable Badger
// document store, or a process-memory map for ephemeral deployments.
func NewSessionStore(logger arbor.ILogger, config *common.Config) (interfaces.SessionStore, error) {
	switch config.Storage.Type {
	case "badger", "":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, err
		}
		return badger.NewSessionStorage(db, logger), nil
	case "memory":
		return memory.NewSessionStore(logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'badger' or 'memory')", config.Storage.Type)
	}
}
