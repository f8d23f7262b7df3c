package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/api"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/service"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
const shutdownTimeout = 30 * time.Second

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	audit := do.MustInvoke[*AuditHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	cacheHandle := do.MustInvoke[*FeedCacheHandle](i)

	services := &api.Services{
		Auth:       do.MustInvoke[*service.AuthService](i),
		Recipe:     do.MustInvoke[*service.RecipeService](i),
		Sharing:    do.MustInvoke[*service.SharingService](i),
		Engagement: do.MustInvoke[*service.EngagementService](i),
		Comment:    do.MustInvoke[*service.CommentService](i),
		Discovery:  do.MustInvoke[*service.DiscoveryService](i),
		Social:     do.MustInvoke[*service.SocialService](i),
		Collection: do.MustInvoke[*service.CollectionService](i),
		Profile:    do.MustInvoke[*service.ProfileService](i),
		Admin:      do.MustInvoke[*service.AdminService](i),
	}

	health := map[string]api.HealthCheck{
		"store":  storeHandle.Ping,
		"audit":  audit.Ping,
		"search": indexHandle.Ping,
	}
	if cacheHandle.Cache != nil {
		health["cache"] = cacheHandle.Cache.Ping
	}

	handler := api.NewServer(services, api.Options{
		ClientURL:  cfg.App.ClientURL,
		Production: cfg.App.IsProduction(),
		Health:     health,
	}, log.Logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "client_url", cfg.App.ClientURL)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
