package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atelierhq/atelier/internal/config"
	"github.com/atelierhq/atelier/internal/database"
	"github.com/atelierhq/atelier/internal/migrate"
	"github.com/atelierhq/atelier/internal/models"
	"github.com/atelierhq/atelier/internal/outbox"
	"github.com/atelierhq/atelier/internal/realtime"
	"github.com/atelierhq/atelier/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "Atelier admin CLI",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect opens the database using the same environment variables the server
// reads.
func connect(ctx context.Context) (*config.Config, *database.DB, error) {
	cfg := config.Load()
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := database.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func init() {
	var email, name, password string
	seedCmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if name == "" {
				name = "Administrator"
			}

			ctx := cmd.Context()
			_, db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			if err := db.EnsureIndexes(ctx); err != nil {
				return err
			}

			users := services.NewUserService(db)
			user, err := users.Create(ctx, email, name, "", password, models.RoleSuperAdmin)
			if err != nil {
				if err == services.ErrConflict {
					return fmt.Errorf("a user with email %s already exists", email)
				}
				return err
			}
			fmt.Printf("Created super admin %s (%s)\n", user.Email, user.ID.Hex())
			return nil
		},
	}
	seedCmd.Flags().StringVar(&email, "email", "", "Admin email address")
	seedCmd.Flags().StringVar(&name, "name", "", "Admin display name")
	seedCmd.Flags().StringVar(&password, "password", "", "Admin password (min 8 characters)")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Reshape legacy documents into the canonical layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			logger, err := config.NewLogger(cfg.Log.Level, "console", "atelier-cli")
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := migrate.Run(ctx, db, logger); err != nil {
				return err
			}
			if err := db.EnsureIndexes(ctx); err != nil {
				return err
			}
			fmt.Println("Migration complete")
			return nil
		},
	}

	dispatchCmd := &cobra.Command{
		Use:   "dispatch-outbox",
		Short: "Dispatch pending outbox events once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close(context.Background())

			logger, err := config.NewLogger(cfg.Log.Level, "console", "atelier-cli")
			if err != nil {
				return err
			}
			defer logger.Sync()

			var publisher *realtime.Publisher
			if cfg.Redis.Enabled {
				publisher = realtime.NewPublisher(realtime.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), logger)
				defer publisher.Close()
			} else {
				publisher = realtime.NewPublisher(nil, logger)
			}

			dispatcher := outbox.NewDispatcher(db, publisher, logger, 0)
			n, err := dispatcher.DispatchPending(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Dispatched %d event(s)\n", n)
			return nil
		},
	}

	rootCmd.AddCommand(seedCmd, migrateCmd, dispatchCmd)
}
