// Package main grants or revokes the admin role for an existing account.
//
// The server must be stopped: badger holds an exclusive lock on its
// directory.
//
// Usage:
//
//	go run ./cmd/makeadmin -email ada@example.com
//	go run ./cmd/makeadmin -email ada@example.com -revoke
//	go run ./cmd/makeadmin -list
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/recipebook/recipebook-server/internal/config"
	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/logger"
	"github.com/recipebook/recipebook-server/internal/service"
	"github.com/recipebook/recipebook-server/internal/store"
	"github.com/recipebook/recipebook-server/internal/store/sqlite"
)

// cliActor is recorded as the actor of role changes made from this tool.
var cliActor = &domain.User{ID: "cli", Name: "makeadmin"}

func main() {
	fs := flag.NewFlagSet("makeadmin", flag.ExitOnError)
	email := fs.String("email", "", "Email of the account to change")
	revoke := fs.Bool("revoke", false, "Revoke the admin role instead of granting it")
	list := fs.Bool("list", false, "List current admins and exit")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *email == "" && !*list {
		fs.Usage()
		os.Exit(2)
	}

	logr := logger.FromConfig(cfg)

	s, err := store.New(cfg.Storage.BadgerPath(), logr.Logger)
	if err != nil {
		logr.WithError(err).Fatal("Failed to open store")
	}
	defer s.Close()

	audit, err := sqlite.Open(cfg.Storage.AuditPath(), logr.Logger)
	if err != nil {
		logr.WithError(err).Fatal("Failed to open audit log")
	}
	defer audit.Close()

	ctx := context.Background()

	if *list {
		if err := listAdmins(ctx, s); err != nil {
			logr.WithError(err).Fatal("Failed to list admins")
		}
		return
	}

	user, err := s.GetUserByEmail(ctx, *email)
	if err != nil {
		logr.WithError(err).Fatal("No account for email", "email", *email)
	}

	admin := service.NewAdminService(s, s, audit, logr.Logger)
	var updated *service.AdminUser
	if *revoke {
		updated, err = admin.Demote(ctx, cliActor, user.ID)
	} else {
		updated, err = admin.Promote(ctx, cliActor, user.ID)
	}
	if err != nil {
		logr.WithError(err).Fatal("Failed to update role")
	}

	fmt.Printf("%s (%s) is now %s\n", updated.Email, updated.ID, updated.Role)
}

func listAdmins(ctx context.Context, s *store.Store) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	n := 0
	for _, u := range users {
		if !u.IsAdmin() {
			continue
		}
		n++
		fmt.Printf("%-28s %-32s %s\n", u.ID, u.Email, u.Status)
	}
	if n == 0 {
		fmt.Println("No admins. Promote one with -email.")
	}
	return nil
}
