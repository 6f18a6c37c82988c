package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"github.com/stemsi/tryout-backend/internal/config"
	"github.com/stemsi/tryout-backend/internal/model"
	"github.com/stemsi/tryout-backend/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tryoutctl",
		Short:         "Operator tooling for the tryout backend",
		SilenceUsage:  true,
	}
	root.AddCommand(migrateCmd(), tokenCmd())
	return root
}

// ─── migrate ───────────────────────────────────────────────────────────

func migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.PersistentFlags().StringVar(&dir, "path", "migrations", "Path to migration files")

	open := func() (*migrate.Migrate, error) {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is not set")
		}
		m, err := migrate.New(fmt.Sprintf("file://%s", dir), cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("migration failed to initialize: %w", err)
		}
		return m, nil
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("up failed: %w", err)
			}
			cmd.Println("Migrated up successfully")
			return nil
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("down failed: %w", err)
			}
			cmd.Println("Migrated down successfully")
			return nil
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close()
			v, dirty, err := m.Version()
			if err != nil {
				return fmt.Errorf("version failed: %w", err)
			}
			cmd.Printf("Version: %d, Dirty: %t\n", v, dirty)
			return nil
		},
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			m, err := open()
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Force(v); err != nil {
				return fmt.Errorf("force failed: %w", err)
			}
			cmd.Printf("Forced version to %d\n", v)
			return nil
		},
	}

	cmd.AddCommand(up, down, version, force)
	return cmd
}

// ─── token ─────────────────────────────────────────────────────────────

// tokenCmd issues a bearer token the way the identity provider would, for
// local development and load tests.
func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for a user id and role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if expiry <= 0 {
				expiry = cfg.JWTExpiry
			}
			ids := service.NewIdentityService(cfg.JWTSecret, expiry)
			token, err := ids.GenerateToken(model.Identity{UserID: userID, Role: model.Role(role)})
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&userID, "user", "", "User id carried by the token")
	f.StringVar(&role, "role", string(model.RoleUser), "Role: admin, teacher or user")
	f.DurationVar(&expiry, "expiry", 0, "Token lifetime (defaults to JWT_EXPIRY_HOURS)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
