// Package main seeds the database with demo accounts and recipes.
//
// Recipes are created through the same services the API uses, so search
// documents, share entries and counters end up exactly as they would for
// real traffic. Seeding is idempotent for accounts: existing emails are
// reused. The server must be stopped while seeding.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed -fixture ./my-fixture.yaml
package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/recipebook/recipebook-server/internal/auth"
	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
	domainerrors "github.com/recipebook/recipebook-server/internal/errors"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/search"
	"github.com/recipebook/recipebook-server/internal/service"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/validation"
)

//go:embed fixture.yaml
var defaultFixture []byte

func main() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	fixturePath := fs.String("fixture", "", "YAML fixture to load (default: built-in demo data)")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	raw := defaultFixture
	if *fixturePath != "" {
		//#nosec G304 -- operator-supplied fixture path
		raw, err = os.ReadFile(*fixturePath)
		if err != nil {
			log.Fatalf("Failed to read fixture: %v", err)
		}
	}
	fx, err := parseFixture(raw)
	if err != nil {
		log.Fatalf("Invalid fixture: %v", err)
	}

	logr := logger.FromConfig(cfg)

	s, err := store.New(cfg.Storage.BadgerPath(), logr.Logger)
	if err != nil {
		logr.WithError(err).Fatal("Failed to open store")
	}
	defer s.Close()

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Storage.SearchPath(),
		Logger:   logr.Logger,
	})
	if err != nil {
		logr.WithError(err).Fatal("Failed to open search index")
	}
	defer index.Close()
	s.AddRecipeIndexer(index)

	key, err := auth.ResolveKey(cfg.Auth.TokenKey, cfg.Storage.DataPath)
	if err != nil {
		logr.WithError(err).Fatal("Failed to load auth key")
	}
	tokens, err := auth.NewTokenService(key, cfg.Auth.AccessTokenDuration)
	if err != nil {
		logr.WithError(err).Fatal("Failed to create token service")
	}

	sd := newSeeder(s, tokens, cfg.Auth, logr.Logger)
	if err := sd.run(context.Background(), fx); err != nil {
		logr.WithError(err).Fatal("Seeding failed")
	}

	fmt.Printf("Seeded %d users, %d recipes, %d follows\n", len(fx.Users), len(fx.Recipes), len(fx.Follows))
}

// seeder applies a fixture through the business services.
type seeder struct {
	store   *store.Store
	auth    *service.AuthService
	recipes *service.RecipeService
	sharing *service.SharingService
	comment *service.CommentService
	social  *service.SocialService
	logger  *slog.Logger

	users map[string]*domain.User // by normalized email
}

func newSeeder(s *store.Store, tokens *auth.TokenService, authCfg config.AuthConfig, log *slog.Logger) *seeder {
	v := validation.New()
	sharing := service.NewSharingService(s, s, nil, v, log)
	engagement := service.NewEngagementService(s, s, log)
	return &seeder{
		store:   s,
		auth:    service.NewAuthService(s, tokens, nil, sharing, nil, v, authCfg, log),
		recipes: service.NewRecipeService(s, s, engagement, v, log),
		sharing: sharing,
		comment: service.NewCommentService(s, s, nil, v, log),
		social:  service.NewSocialService(s, s, nil, log),
		logger:  log,
		users:   make(map[string]*domain.User),
	}
}

func (sd *seeder) run(ctx context.Context, fx *fixture) error {
	for _, u := range fx.Users {
		user, err := sd.ensureUser(ctx, u, fx.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		sd.users[domain.NormalizeEmail(u.Email)] = user
	}

	for _, f := range fx.Follows {
		if _, err := sd.social.Follow(ctx, sd.user(f.From), sd.user(f.To).ID); err != nil {
			return fmt.Errorf("follow %s -> %s: %w", f.From, f.To, err)
		}
	}

	for _, r := range fx.Recipes {
		if err := sd.seedRecipe(ctx, r); err != nil {
			return fmt.Errorf("recipe %q: %w", r.Title, err)
		}
	}
	return nil
}

// ensureUser signs the account up, or loads it when the email is taken.
func (sd *seeder) ensureUser(ctx context.Context, u fixtureUser, password string) (*domain.User, error) {
	resp, err := sd.auth.Signup(ctx, service.SignupRequest{
		Name:     u.Name,
		Email:    u.Email,
		Password: password,
		Username: u.Username,
	})
	var user *domain.User
	switch {
	case err == nil:
		user = resp.User
		sd.logger.Info("created user", "email", u.Email, "id", user.ID)
	case isAlreadyExists(err):
		user, err = sd.store.GetUserByEmail(ctx, u.Email)
		if err != nil {
			return nil, err
		}
		sd.logger.Info("reusing existing user", "email", u.Email, "id", user.ID)
	default:
		return nil, err
	}

	// Seeded accounts skip verification and onboarding.
	return sd.store.MutateUser(ctx, user.ID, func(stored *domain.User) error {
		stored.EmailVerified = true
		stored.OnboardingComplete = true
		if u.Admin {
			stored.Role = domain.RoleAdmin
		}
		return nil
	})
}

func (sd *seeder) seedRecipe(ctx context.Context, r fixtureRecipe) error {
	owner := sd.user(r.Owner)

	recipe, err := sd.recipes.Create(ctx, owner, service.CreateRecipeRequest{
		RecipeInput: service.RecipeInput{
			Title:        r.Title,
			Ingredients:  r.Ingredients,
			Instructions: r.Instructions,
			PrepTime:     r.PrepTime,
			CookTime:     r.CookTime,
			Servings:     r.Servings,
			Category:     domain.Category(r.Category),
			Region:       domain.Region(r.Region),
			Notes:        r.Notes,
			Tags:         r.Tags,
		},
		Visibility: domain.Visibility(r.Visibility),
	})
	if err != nil {
		return err
	}

	for _, sh := range r.Shares {
		if _, err := sd.sharing.ShareWith(ctx, owner, recipe.ID, service.ShareRequest{
			Emails:     []string{sh.Email},
			Permission: domain.Permission(sh.Permission),
		}); err != nil {
			return fmt.Errorf("share with %s: %w", sh.Email, err)
		}
	}

	for _, c := range r.Comments {
		rating := c.Rating
		req := service.CommentRequest{Text: c.Text}
		if rating > 0 {
			req.Rating = &rating
		}
		if _, err := sd.comment.Upsert(ctx, sd.user(c.Author), recipe.ID, req); err != nil {
			return fmt.Errorf("comment by %s: %w", c.Author, err)
		}
	}

	sd.logger.Info("created recipe", "title", recipe.Title, "id", recipe.ID, "visibility", recipe.Visibility)
	return nil
}

func (sd *seeder) user(email string) *domain.User {
	return sd.users[domain.NormalizeEmail(email)]
}

func isAlreadyExists(err error) bool {
	var domainErr *domainerrors.Error
	return errors.As(err, &domainErr) && domainErr.Code == domainerrors.CodeAlreadyExists
}
