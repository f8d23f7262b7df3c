package providers

import (
	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the badger document store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Storage.BadgerPath()
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// AuditHandle wraps the sqlite moderation log with shutdown capability.
type AuditHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *AuditHandle) Shutdown() error {
	return h.Close()
}

// ProvideAudit provides the sqlite moderation log.
func ProvideAudit(i do.Injector) (*AuditHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Storage.AuditPath(), log.Logger)
	if err != nil {
		return nil, err
	}
	return &AuditHandle{Store: db}, nil
}
