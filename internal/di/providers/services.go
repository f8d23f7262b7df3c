package providers

import (
	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/service"
	"github.com/recipebook/recipebook-server/internal/validation"
)

// ProvideSharingService provides the recipe sharing service.
func ProvideSharingService(i do.Injector) (*service.SharingService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*NotifierHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSharingService(storeHandle.Store, storeHandle.Store, notifier.Notifier, v, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sharingService := do.MustInvoke[*service.SharingService](i)
	notifier := do.MustInvoke[*NotifierHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	var google service.GoogleVerifier
	if cfg.Google.ClientID != "" {
		google = auth.NewGoogleVerifier(cfg.Google.ClientID, "", nil)
	} else {
		log.Info("Google sign-in disabled, GOOGLE_CLIENT_ID not set")
	}

	return service.NewAuthService(
		storeHandle.Store,
		tokenService,
		google,
		sharingService,
		notifier.Notifier,
		v,
		cfg.Auth,
		log.Logger,
	), nil
}

// ProvideEngagementService provides the favorites and view counting service.
func ProvideEngagementService(i do.Injector) (*service.EngagementService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEngagementService(storeHandle.Store, storeHandle.Store, log.Logger), nil
}

// ProvideRecipeService provides the recipe service.
func ProvideRecipeService(i do.Injector) (*service.RecipeService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engagement := do.MustInvoke[*service.EngagementService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecipeService(storeHandle.Store, storeHandle.Store, engagement, v, log.Logger), nil
}

// ProvideCommentService provides the comment and rating service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*NotifierHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(storeHandle.Store, storeHandle.Store, notifier.Notifier, v, log.Logger), nil
}

// ProvideDiscoveryService provides the public feed service.
func ProvideDiscoveryService(i do.Injector) (*service.DiscoveryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	cacheHandle := do.MustInvoke[*FeedCacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	var pageCache service.PageCache
	if cacheHandle.Cache != nil {
		pageCache = cacheHandle.Cache
	}

	return service.NewDiscoveryService(storeHandle.Store, storeHandle.Store, indexHandle.SearchIndex, pageCache, log.Logger), nil
}

// ProvideSocialService provides the follow graph service.
func ProvideSocialService(i do.Injector) (*service.SocialService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifier := do.MustInvoke[*NotifierHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSocialService(storeHandle.Store, storeHandle.Store, notifier.Notifier, log.Logger), nil
}

// ProvideCollectionService provides the personal collection service.
func ProvideCollectionService(i do.Injector) (*service.CollectionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCollectionService(storeHandle.Store, storeHandle.Store, v, log.Logger), nil
}

// ProvideProfileService provides the profile and account service.
func ProvideProfileService(i do.Injector) (*service.ProfileService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewProfileService(storeHandle.Store, storeHandle.Store, v, log.Logger), nil
}

// ProvideAdminService provides the moderation service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	audit := do.MustInvoke[*AuditHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, storeHandle.Store, audit.Store, log.Logger), nil
}
