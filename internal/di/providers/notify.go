package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/notify"
)

// NotifierHandle wraps the notification queue with shutdown capability.
type NotifierHandle struct {
	*notify.Notifier
}

// Shutdown drains queued messages.
func (h *NotifierHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Notifier.Shutdown(ctx)
}

// ProvideNotifier provides the outbound notification queue.
func ProvideNotifier(i do.Injector) (*NotifierHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	mailer, err := notify.NewMailer(context.Background(), cfg.Mail, log.Logger)
	if err != nil {
		return nil, err
	}

	n := notify.NewNotifier(mailer, cfg.App.ClientURL, cfg.Mail.QueueSize, log.Logger)
	log.Info("Notifier started", "provider", cfg.Mail.Provider)

	return &NotifierHandle{Notifier: n}, nil
}
