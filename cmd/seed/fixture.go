package main

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/recipebook/recipebook-server/internal/domain"
)

type fixture struct {
	Password string          `yaml:"password"`
	Users    []fixtureUser   `yaml:"users"`
	Follows  []fixtureFollow `yaml:"follows"`
	Recipes  []fixtureRecipe `yaml:"recipes"`
}

type fixtureUser struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Username string `yaml:"username"`
	Admin    bool   `yaml:"admin"`
}

type fixtureFollow struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type fixtureRecipe struct {
	Owner        string           `yaml:"owner"`
	Title        string           `yaml:"title"`
	Category     string           `yaml:"category"`
	Region       string           `yaml:"region"`
	Visibility   string           `yaml:"visibility"`
	PrepTime     int              `yaml:"prep_time"`
	CookTime     int              `yaml:"cook_time"`
	Servings     int              `yaml:"servings"`
	Notes        string           `yaml:"notes"`
	Tags         []string         `yaml:"tags"`
	Ingredients  []string         `yaml:"ingredients"`
	Instructions []string         `yaml:"instructions"`
	Shares       []fixtureShare   `yaml:"shares"`
	Comments     []fixtureComment `yaml:"comments"`
}

type fixtureShare struct {
	Email      string `yaml:"email"`
	Permission string `yaml:"permission"`
}

type fixtureComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
	Rating int    `yaml:"rating"`
}

// parseFixture decodes raw and checks that every referenced account is
// declared and every enum value is known.
func parseFixture(raw []byte) (*fixture, error) {
	var fx fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if fx.Password == "" {
		return nil, errors.New("password is required")
	}

	declared := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		declared[domain.NormalizeEmail(u.Email)] = true
	}
	known := func(email string) error {
		if !declared[domain.NormalizeEmail(email)] {
			return fmt.Errorf("unknown user %q", email)
		}
		return nil
	}

	var errs []error
	for _, f := range fx.Follows {
		errs = append(errs, known(f.From), known(f.To))
	}
	for _, r := range fx.Recipes {
		if err := known(r.Owner); err != nil {
			errs = append(errs, fmt.Errorf("recipe %q owner: %w", r.Title, err))
		}
		if !domain.Category(r.Category).IsValid() {
			errs = append(errs, fmt.Errorf("recipe %q: invalid category %q", r.Title, r.Category))
		}
		if !domain.Region(r.Region).IsValid() {
			errs = append(errs, fmt.Errorf("recipe %q: invalid region %q", r.Title, r.Region))
		}
		if r.Visibility != "" && !domain.Visibility(r.Visibility).IsValid() {
			errs = append(errs, fmt.Errorf("recipe %q: invalid visibility %q", r.Title, r.Visibility))
		}
		for _, sh := range r.Shares {
			if !domain.Permission(sh.Permission).IsValid() {
				errs = append(errs, fmt.Errorf("recipe %q: invalid permission %q", r.Title, sh.Permission))
			}
		}
		for _, c := range r.Comments {
			if err := known(c.Author); err != nil {
				errs = append(errs, fmt.Errorf("recipe %q comment: %w", r.Title, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &fx, nil
}
