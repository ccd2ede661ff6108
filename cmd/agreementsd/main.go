package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"agreementsd/internal/agreements"
	"agreementsd/internal/ai"
	"agreementsd/internal/billing"
	"agreementsd/internal/config"
	"agreementsd/internal/httpapi"
	"agreementsd/internal/identity"
	"agreementsd/internal/jobs"
	"agreementsd/internal/mail"
	"agreementsd/internal/notify"
	"agreementsd/internal/otel"
	"agreementsd/internal/plans"
	"agreementsd/internal/profiles"
	"agreementsd/internal/store"
	"agreementsd/internal/version"
	"agreementsd/pkg/blob"
	"agreementsd/pkg/bus"
	"agreementsd/pkg/db"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           version.Name,
		Short:         "Agreement management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSweepSharesCommand())
	cmd.AddCommand(newReconcileCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with in-process maintenance jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func newSweepSharesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-shares",
		Short: "Delete expired share invitations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(func(ctx context.Context, app *application) error {
				deleted, err := app.runner.SweepShares(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("deleted", deleted).Msg("sweep finished")
				return nil
			})
		},
	}
}

func newReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile signature statuses, send notifications, and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(func(ctx context.Context, app *application) error {
				updates, err := app.runner.ReconcileStatuses(ctx)
				if err != nil {
					return err
				}
				log.Info().Int("updates", len(updates)).Msg("reconcile finished")
				return nil
			})
		},
	}
}

// application bundles everything built from configuration.
type application struct {
	cfg     config.Config
	store   *store.Store
	events  *bus.Bus
	runner  *jobs.Runner
	handler http.Handler

	closers []func()
}

func (app *application) close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
}

func bootstrap(ctx context.Context) (*application, error) {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	app := &application{cfg: cfg}

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.closers = append(app.closers, pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		app.close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	orm, err := db.OpenORM(cfg.DBDSN)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("open orm: %w", err)
	}
	app.closers = append(app.closers, func() {
		if err := db.CloseORM(orm); err != nil {
			log.Error().Err(err).Msg("close orm")
		}
	})

	st, err := store.New(orm, pool)
	if err != nil {
		app.close()
		return nil, err
	}
	app.store = st

	blobs, err := blob.New(blob.Options{
		Endpoint:       cfg.S3Endpoint,
		Region:         cfg.S3Region,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		PublicBaseURL:  cfg.S3PublicBaseURL,
		DisableTLS:     cfg.S3DisableTLS,
		ForcePathStyle: cfg.S3ForcePathStyle,
	})
	if err != nil {
		app.close()
		return nil, fmt.Errorf("blob store: %w", err)
	}

	if cfg.NATSURL != "" {
		events, err := bus.New(cfg.NATSURL)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		app.events = events
		app.closers = append(app.closers, events.Close)
	}

	table, err := plans.Load(cfg.PlanTablePath)
	if err != nil {
		app.close()
		return nil, err
	}

	svc := agreements.New(agreements.Options{
		Store:      st,
		Blobs:      blobs,
		Limiter:    store.NewPlanLimiter(table, st),
		Gating:     cfg.SubscriptionGating,
		AppBaseURL: cfg.AppBaseURL,
		Logger:     log.With().Str("component", "agreements").Logger(),
	})

	mailer, err := mail.New(mail.Options{
		APIURL:   cfg.MailAPIURL,
		APIKey:   cfg.MailAPIKey,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	notifier := notify.New(mailer, app.events, cfg.AppBaseURL,
		log.With().Str("component", "notify").Logger())

	app.runner = jobs.New(svc, notifier, log.With().Str("component", "jobs").Logger())

	billingSvc, err := billing.New(billing.Options{
		BaseURL:       cfg.BillingAPIURL,
		APIKey:        cfg.BillingAPIKey,
		StoreID:       cfg.BillingStoreID,
		WebhookSecret: cfg.BillingWebhookSecret,
		Table:         table,
		Store:         st,
	})
	if err != nil {
		app.close()
		return nil, err
	}

	verifier, err := identity.NewJWTVerifier(cfg.AuthSigningKey)
	if err != nil {
		app.close()
		return nil, err
	}

	var generator *ai.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = ai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	api, err := httpapi.New(httpapi.Options{
		Agreements:    svc,
		Profiles:      profiles.New(st, blobs, log.With().Str("component", "profiles").Logger()),
		Billing:       billingSvc,
		Subscriptions: st,
		Generator:     generator,
		Notifier:      notifier,
		Runner:        app.runner,
		Verifier:      verifier,
		Config: httpapi.Config{
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
		},
		Logger: log.With().Str("component", "httpapi").Logger(),
	})
	if err != nil {
		app.close()
		return nil, err
	}
	app.handler = api.Routes()

	return app, nil
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	cleanup, err := otel.Init(ctx, version.Name, app.cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	if app.cfg.EnableCron {
		if err := app.runner.Start(); err != nil {
			return fmt.Errorf("start cron: %w", err)
		}
		defer app.runner.Stop()
	}

	srv := &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", app.cfg.Addr).Msg("starting " + version.Name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	return nil
}

func runJob(job func(ctx context.Context, app *application) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	return job(ctx, app)
}
