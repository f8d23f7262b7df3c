// Package di provides dependency injection configuration for the recipe book server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/di/providers"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/service"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideAudit)

	// Search and cache
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideFeedCache)

	// Notifications
	do.Provide(injector, providers.ProvideNotifier)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideSharingService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideEngagementService)
	do.Provide(injector, providers.ProvideRecipeService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideDiscoveryService)
	do.Provide(injector, providers.ProvideSocialService)
	do.Provide(injector, providers.ProvideCollectionService)
	do.Provide(injector, providers.ProvideProfileService)
	do.Provide(injector, providers.ProvideAdminService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.AuditHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*providers.FeedCacheHandle](injector)
	_ = do.MustInvoke[*providers.NotifierHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.SharingService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.EngagementService](injector)
	_ = do.MustInvoke[*service.RecipeService](injector)
	_ = do.MustInvoke[*service.CommentService](injector)
	_ = do.MustInvoke[*service.DiscoveryService](injector)
	_ = do.MustInvoke[*service.SocialService](injector)
	_ = do.MustInvoke[*service.CollectionService](injector)
	_ = do.MustInvoke[*service.ProfileService](injector)
	_ = do.MustInvoke[*service.AdminService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
