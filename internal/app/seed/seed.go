// Package seed fills an empty database with the default departments and the
// configured administrator account.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/platform/config"
	"tbscrm/internal/platform/db"
)

func Run(ctx context.Context, q db.Querier, cfg config.Config) error {
	if err := ensureDepartments(ctx, core.NewStore(q, nil)); err != nil {
		return fmt.Errorf("seed departments: %w", err)
	}
	if err := ensureAdminUser(ctx, &auth.Store{DB: q}, cfg); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

// ensureDepartments inserts the default departments only when the table is
// empty, so departments removed by an administrator stay removed.
func ensureDepartments(ctx context.Context, store *core.Store) error {
	existing, err := store.ListDepartments(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, dep := range core.DefaultDepartments {
		if _, err := store.UpsertDepartment(ctx, dep); err != nil {
			return err
		}
	}
	slog.Info("default departments seeded", "count", len(core.DefaultDepartments))
	return nil
}

func ensureAdminUser(ctx context.Context, store *auth.Store, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}
	_, err := store.FindActiveUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	id, err := store.CreateAccount(ctx, auth.Account{
		Email:    email,
		FullName: cfg.SeedAdminName,
		Role:     auth.RoleAdmin,
	}, hash)
	if errors.Is(err, auth.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}
	slog.Info("admin account seeded", "userId", id, "email", email)
	return nil
}
