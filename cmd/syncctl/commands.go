package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shiphub/backend/internal/bootstrap"
	"github.com/shiphub/backend/internal/domain/integration"
	"github.com/shiphub/backend/internal/infrastructure/auth"
	"github.com/shiphub/backend/internal/infrastructure/config"
	"github.com/shiphub/backend/internal/infrastructure/logger"
)

// syncBackend is the slice of the application the commands drive
type syncBackend interface {
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	SyncUser(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error)
	SyncShippingInfo(ctx context.Context) (*integration.ShippingSyncResult, error)
	SyncUserShipping(ctx context.Context, userID uuid.UUID) (*integration.ShippingSyncResult, error)
	Close(ctx context.Context) error
}

type openFunc func(ctx context.Context, logLevel string) (syncBackend, error)

// tokenIssuer mints API access tokens
type tokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, ttl time.Duration, roles ...string) (string, error)
}

type issuerFunc func() (tokenIssuer, error)

type rootOptions struct {
	logLevel string
	timeout  time.Duration
}

func newRootCmd(open openFunc, issuer issuerFunc) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "syncctl",
		Short: "ShipHub sync operator tool",
		Long: `syncctl runs marketplace order and shipping syncs outside the server.

It reads the same configuration as the server (config.toml and SHIPHUB_*
environment variables) and prints each result as JSON.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Overall command timeout")

	root.AddCommand(
		newSyncUserCmd(open, opts),
		newSyncShippingCmd(open, opts),
		newListUsersCmd(open, opts),
		newTokenCmd(issuer),
	)
	return root
}

func newSyncUserCmd(open openFunc, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-user <user-id>",
		Short: "Pull and reconcile orders from every configured marketplace for one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			return withBackend(cmd, open, opts, func(ctx context.Context, b syncBackend) error {
				result, err := b.SyncUser(ctx, userID)
				if err != nil {
					return fmt.Errorf("sync user %s: %w", userID, err)
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newSyncShippingCmd(open openFunc, opts *rootOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "sync-shipping",
		Short: "Refresh shipping details for existing orders",
		Long: `Refresh shipping details for orders that already exist locally.

Without --user every user with marketplace credentials is swept.
Orders are never created by this command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID uuid.UUID
			if user != "" {
				id, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("invalid user id %q: %w", user, err)
				}
				userID = id
			}
			return withBackend(cmd, open, opts, func(ctx context.Context, b syncBackend) error {
				var (
					result *integration.ShippingSyncResult
					err    error
				)
				if userID == uuid.Nil {
					result, err = b.SyncShippingInfo(ctx)
				} else {
					result, err = b.SyncUserShipping(ctx, userID)
				}
				if err != nil {
					return fmt.Errorf("sync shipping: %w", err)
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Only sweep this user")
	return cmd
}

func newListUsersCmd(open openFunc, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List users that have marketplace credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, opts, func(ctx context.Context, b syncBackend) error {
				ids, err := b.ListUserIDs(ctx)
				if err != nil {
					return fmt.Errorf("list users: %w", err)
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id.String())
				}
				return nil
			})
		},
	}
}

func newTokenCmd(issuer issuerFunc) *cobra.Command {
	var (
		ttl      time.Duration
		operator bool
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint an API access token for a user",
		Long: `Mint an API access token signed with the configured jwt.secret.

--operator adds the operator role that POST /api/v1/sync/shipping requires.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q: %w", args[0], err)
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}

			iss, err := issuer()
			if err != nil {
				return err
			}
			var roles []string
			if operator {
				roles = append(roles, auth.RoleOperator)
			}
			token, err := iss.GenerateAccessToken(userID, ttl, roles...)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&operator, "operator", false, "Grant the operator role")
	return cmd
}

func withBackend(cmd *cobra.Command, open openFunc, opts *rootOptions, run func(context.Context, syncBackend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	b, err := open(ctx, opts.logLevel)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = b.Close(closeCtx)
	}()

	return run(ctx, b)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadIssuer() (tokenIssuer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return auth.NewJWTService(cfg.JWT), nil
}

// appBackend adapts the wired application to syncBackend
type appBackend struct {
	app *bootstrap.App
	log *zap.Logger
}

func openApp(ctx context.Context, logLevel string) (syncBackend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return &appBackend{app: app, log: log}, nil
}

func (b *appBackend) ListUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return b.app.Credentials.ListUserIDs(ctx)
}

func (b *appBackend) SyncUser(ctx context.Context, userID uuid.UUID) (*integration.SyncResult, error) {
	return b.app.OrderSync.SyncUser(ctx, userID)
}

func (b *appBackend) SyncShippingInfo(ctx context.Context) (*integration.ShippingSyncResult, error) {
	return b.app.ShippingSync.SyncShippingInfo(ctx)
}

func (b *appBackend) SyncUserShipping(ctx context.Context, userID uuid.UUID) (*integration.ShippingSyncResult, error) {
	return b.app.ShippingSync.SyncUserShipping(ctx, userID)
}

func (b *appBackend) Close(ctx context.Context) error {
	err := b.app.Close(ctx)
	_ = b.log.Sync()
	return err
}
