package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/atelier-ops/workflow-hub/internal/config"
	"github.com/atelier-ops/workflow-hub/internal/controller"
	"github.com/atelier-ops/workflow-hub/internal/logging"
	"github.com/atelier-ops/workflow-hub/internal/notify"
	"github.com/atelier-ops/workflow-hub/internal/repository"
	"github.com/atelier-ops/workflow-hub/internal/workflow"
	"github.com/atelier-ops/workflow-hub/pkg/models"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:   "seed",
		Short: "Initialize and seed the workflow hub database",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	root.AddCommand(schemaCmd(), demoCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, repository.Schema); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			log.Println("Schema applied")
			return nil
		},
	}
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Create demo entities through the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := logging.NewLogger()
			defs, err := workflow.NewStore(cfg.Workflows)
			if err != nil {
				return fmt.Errorf("invalid workflow definitions: %w", err)
			}

			// Demo data skips outbound delivery; the dispatcher has no
			// collaborators wired.
			dispatcher := notify.NewDispatcher(notify.Targets{}, nil,
				cfg.Notifications.Retry, cfg.Notifications.Timeout, logger)
			defer dispatcher.Close()

			ctrl := controller.New(
				repository.NewPostgresEntityStore(pool),
				repository.NewPostgresAuditLog(pool),
				defs, dispatcher, controller.SyncPolicy{}, logger)

			actor := models.Actor{ID: "seed-script", Roles: []string{"admin", "curator"}}

			demos := []struct {
				workflowType string
				payload      map[string]any
			}{
				{"GalleryExhibit", map[string]any{"title": "Light Forms", "artist": "R. Okafor"}},
				{"GalleryExhibit", map[string]any{"title": "Paper Cities", "artist": "M. Hale"}},
				{"WellnessBooking", map[string]any{"client": "demo", "service": "massage_60"}},
			}
			for _, d := range demos {
				entity, err := ctrl.Create(ctx, d.workflowType, "", actor, d.payload)
				if err != nil {
					log.Printf("Failed to create %s demo entity: %v", d.workflowType, err)
					continue
				}
				logger.Info("Seeded entity",
					"id", entity.ID, "workflow_type", entity.WorkflowType, "state", entity.State)
			}
			logger.Info("Seeding complete!")
			return nil
		},
	}
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return cfg, pool, nil
}
