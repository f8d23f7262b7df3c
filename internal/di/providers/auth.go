package providers

import (
	"github.com/samber/do/v2"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/logger"
)

// AuthKey is the hex-encoded token key.
type AuthKey string

// ProvideAuthKey resolves the configured key or loads the one stored under
// the data path, generating it on first run.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.ResolveKey(cfg.Auth.TokenKey, cfg.Storage.DataPath)
	if err != nil {
		return "", err
	}

	log.Info("Authentication key loaded",
		"from_env", cfg.Auth.TokenKey != "",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.AccessTokenDuration)
}
