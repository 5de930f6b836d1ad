package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibealong/vibealong/internal/auth"
	"github.com/vibealong/vibealong/internal/config"
	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/playback"
	"github.com/vibealong/vibealong/internal/server"
)

// kvPurgeInterval is how often expired sqlite drafts are removed.
const kvPurgeInterval = 10 * time.Minute

var (
	servePort      int
	serveGRPCPort  int
	serveNoLimiter bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default from config)")
	serveCmd.Flags().IntVar(&serveGRPCPort, "grpc-port", 0, "gRPC health port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoLimiter, "no-rate-limit", false, "disable per-route rate limits")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback, listings and signup API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		logger := logging.Component("serve")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		setup := newProgress(3)
		database, err := openDatabaseStep(setup.Step("Opening database"))
		if err != nil {
			return err
		}
		defer database.Close()

		step := setup.Step("Seeding listings")
		listings := db.NewListingRepository(database)
		seeded, err := seedListings(ctx, listings)
		if err != nil {
			step.Fail(err)
			return fmt.Errorf("failed to seed listings: %w", err)
		}
		step.DoneWith(fmt.Sprintf("%d listings", seeded))
		logger.Info().Int("listings", seeded).Msg("listings seeded")

		step = setup.Step("Loading scenarios")
		library, err := loadScripts()
		if err != nil {
			step.Fail(err)
			return err
		}
		step.DoneWith(fmt.Sprintf("%d scenarios", len(library)))

		var verifier *auth.Verifier
		if cfg.Auth.JWTSecret != "" {
			verifier, err = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			if err != nil {
				return err
			}
		} else {
			logger.Warn().Msg("auth.jwt_secret is empty; dashboard routes will reject every request")
		}

		eventRepo := db.NewEventRepository(database)
		svc := playback.NewService(playback.Config{
			MaxSessions:  cfg.Server.MaxSessions,
			TickInterval: cfg.Sequencer.TickInterval,
			IdleTimeout:  cfg.Server.SessionIdleTimeout,
		}, library, eventRepo, nil)

		srv, err := server.New(server.Deps{
			Playback: svc,
			Listings: listings,
			Signups:  db.NewSignupRepository(database),
			Events:   eventRepo,
			Verifier: verifier,
		}, server.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimiter: server.NewRateLimiter(server.WithEnabled(!serveNoLimiter)),
			Version:     version,
		})
		if err != nil {
			return err
		}

		serverCfg := cfg.Server
		if servePort > 0 {
			serverCfg.Port = servePort
		}
		if serveGRPCPort > 0 {
			serverCfg.GRPCPort = serveGRPCPort
		}
		daemon, err := server.NewDaemon(serverCfg, srv, svc)
		if err != nil {
			return err
		}
		if err := daemon.Listen(); err != nil {
			return &PreflightError{
				Message:  err.Error(),
				Hint:     "Another process may be using the port",
				NextStep: "vibealong serve --port 8090 --grpc-port 8091",
			}
		}
		fmt.Fprintf(os.Stderr, "Serving HTTP on http://%s (gRPC health on %s)\n", daemon.HTTPAddr(), daemon.GRPCAddr())

		if cfg.Store.Backend == config.BackendSQLite {
			go purgeDrafts(ctx, db.NewKVRepository(database))
		}
		return daemon.Run(ctx)
	},
}

func purgeDrafts(ctx context.Context, repo *db.KVRepository) {
	logger := logging.Component("serve")
	ticker := time.NewTicker(kvPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to purge expired drafts")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("purged", n).Msg("expired drafts purged")
			}
		}
	}
}
