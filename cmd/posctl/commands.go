package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prudhvinik1/possync/internal/app"
	"github.com/prudhvinik1/possync/internal/logger"
	"github.com/prudhvinik1/possync/internal/services"
)

var (
	shopID   string
	deviceID string
	timeout  time.Duration
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logger.Log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a POS terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, claims, err := services.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry).Issue(shopID, deviceID)
		if err != nil {
			return err
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "Expires at %s\n", claims.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push queued mutations and refresh the local views",
	Long: `Run one full sync for a shop: flush the mutation queue to the remote
database, then replace the local product, sale and order views.

Exits non-zero when the sync does not complete.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			result := a.Engine.SyncAll(ctx, shopID)
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.Reason)
			}
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue depth, reachability and last sync time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			status, err := a.Engine.Status(ctx, shopID)
			if err != nil {
				return err
			}
			return printJSON(status)
		})
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the mutation queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mutations waiting to be pushed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			items, err := a.Engine.Queue().Items(ctx)
			if err != nil {
				return err
			}
			return printJSON(items)
		})
	},
}

var queueDroppedCmd = &cobra.Command{
	Use:   "dropped",
	Short: "List mutations dropped after exhausting their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			items, err := a.Engine.Store().Dropped(ctx)
			if err != nil {
				return err
			}
			return printJSON(items)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the remote tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if err := a.EnsureSchema(ctx); err != nil {
				return err
			}
			fmt.Println("Remote schema is up to date")
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for remote operations")

	tokenCmd.Flags().StringVar(&shopID, "shop", "", "Shop id (required)")
	tokenCmd.Flags().StringVar(&deviceID, "device", "", "Device id (required)")
	tokenCmd.MarkFlagRequired("shop")
	tokenCmd.MarkFlagRequired("device")

	for _, cmd := range []*cobra.Command{syncCmd, statusCmd} {
		cmd.Flags().StringVar(&shopID, "shop", "", "Shop id (required)")
		cmd.MarkFlagRequired("shop")
	}

	queueCmd.AddCommand(queueListCmd, queueDroppedCmd)
}
