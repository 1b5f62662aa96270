// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/database"
	"taskboard/internal/logging"
	"taskboard/internal/repositories"
	"taskboard/internal/store"
)

// NewSQLite opens a private in-memory sqlite database with the entity tables
// created. It is closed when the test ends.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.Must(uuid.NewV4()).String()[:8]
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:   database.DriverSQLite,
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: logger.Silent,
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	require.NoError(t, repositories.Bootstrap(pool.DB, &repositories.BootstrapConfig{
		MaxRetries: 1,
		Logger:     logging.Discard(),
	}))
	return pool.DB
}

// NewCollections returns the four collections over NewSQLite.
func NewCollections(t testing.TB) *store.Collections {
	t.Helper()
	return repositories.NewCollections(NewSQLite(t))
}

// StepClock advances by Step on every call so consecutive timestamps are
// strictly increasing.
type StepClock struct {
	mu   sync.Mutex
	t    time.Time
	Step time.Duration
}

func NewStepClock(start time.Time) *StepClock {
	return &StepClock{t: start, Step: time.Second}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.Step)
	return c.t
}
