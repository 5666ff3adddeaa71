package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/elpasoverse/portal/internal/config"
	"github.com/elpasoverse/portal/internal/database"
	"github.com/elpasoverse/portal/internal/engagement"
	"github.com/elpasoverse/portal/internal/fraud"
	"github.com/elpasoverse/portal/internal/handler"
	"github.com/elpasoverse/portal/internal/identity"
	"github.com/elpasoverse/portal/internal/ledger"
	"github.com/elpasoverse/portal/internal/middleware"
	"github.com/elpasoverse/portal/internal/queue"
	"github.com/elpasoverse/portal/internal/repository"
	"github.com/elpasoverse/portal/internal/router"
	"github.com/elpasoverse/portal/internal/sheetlog"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the activity event pipeline",
	Long: `Run the HTTP API. Without a database the portal starts in demo mode:
reads return empty values and writes report that the store is not configured.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("migrate", true, "apply the schema before serving")
}

// stores holds the persistence behind each service.  Every field stays nil
// without a database so the services run in demo mode.
type stores struct {
	accounts ledger.Store
	attempts fraud.AttemptStore
	holders  fraud.BonusHolderFinder
	votes    engagement.VoteStore
	ideas    engagement.IdeaStore
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
}

func newStores(db *sql.DB) stores {
	if db == nil {
		return stores{}
	}
	accounts := repository.NewAccountRepo(db)
	return stores{
		accounts: accounts,
		attempts: repository.NewSignupAttemptRepo(db),
		holders:  accounts,
		votes:    repository.NewVoteRepo(db),
		ideas:    repository.NewIdeaRepo(db),
		users:    repository.NewUserRepo(db),
		tokens:   repository.NewTokenRepo(db),
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseConfigured() {
		var err error
		if db, err = database.Open(cfg); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
			if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
				return err
			}
		}
	} else {
		logger.Warn("no database configured, running in demo mode")
	}
	st := newStores(db)

	// activity events: services -> dispatcher -> broker -> consumer -> sheet
	evCfg := config.LoadEventsConfig()
	sheets := sheetlog.New(evCfg.SheetURL, evCfg.SheetSecret, evCfg.SheetTimeout, logger)
	var (
		pub      queue.Publisher = queue.DirectPublisher{Handler: sheets}
		consumer *queue.Consumer
	)
	if evCfg.AMQPURL != "" {
		amqpPub := queue.NewAMQPPublisher(evCfg.AMQPURL, evCfg.Queue, logger)
		defer amqpPub.Close()
		pub = amqpPub
		consumer = queue.NewConsumer(evCfg.AMQPURL, evCfg.Queue, sheets, logger)
	}
	dispatcher := queue.NewDispatcher(pub, evCfg.Buffer, evCfg.PublishTimeout, logger)

	verifier, err := identity.NewVerifier(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("identity provider: %w", err)
	}
	signupCfg := config.LoadSignupConfig()
	resolver := identity.NewResolver(verifier, signupCfg.LookupTimeout)
	if !resolver.Configured() {
		logger.Warn("no identity provider configured, sessions are anonymous")
	}

	captcha := fraud.NewRecaptcha(signupCfg.RecaptchaSecret, signupCfg.RecaptchaVerifyURL, signupCfg.LookupTimeout, logger)
	collector := fraud.NewCollector(signupCfg, st.attempts, st.holders, captcha, logger)
	credits := ledger.NewService(st.accounts, dispatcher, signupCfg.BonusAmount, logger)
	votes := engagement.NewVotes(st.votes, dispatcher, logger)
	ideas := engagement.NewIdeas(st.ideas, dispatcher, logger)

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(requestLogConfig(logger)))
	e.Use(middleware.Session(resolver, cfg.IsProd()))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	accountH := handler.NewAccountHandler(collector, credits, logger)
	engagementH := handler.NewEngagementHandler(votes, ideas, logger)
	router.RegisterRoutes(e, db, cfg.LoginPath)
	router.RegisterAccount(e, accountH, cfg.LoginPath)
	router.RegisterEngagement(e, engagementH, middleware.NewRedisCache(config.LoadCacheConfig(), rdb), cfg.LoginPath)
	router.RegisterWallet(e, handler.NewWalletHandler(dispatcher, logger))
	router.RegisterAdmin(e, accountH, engagementH, cfg.LoginPath)
	if cfg.IdentityProvider == config.ProviderLocal {
		router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.users, st.tokens, logger), cfg.LoginPath)
	}

	var workers []runner
	if consumer != nil {
		workers = append(workers, consumer)
	}
	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "identity", cfg.IdentityProvider)
	return serveUntil(ctx, e, addr, dispatcher, workers...)
}

// httpServer is the part of *echo.Echo the serve lifecycle drives.
type httpServer interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

// serveUntil runs srv, the dispatcher and any workers until ctx ends.  The
// dispatcher outlives the HTTP server: it only starts draining once Shutdown
// has returned, so events emitted by in-flight requests still go out.
func serveUntil(ctx context.Context, srv httpServer, addr string, dispatcher runner, workers ...runner) error {
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(dispatchCtx) })
	for _, w := range workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopDispatch()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLogConfig(logger *slog.Logger) echomw.RequestLoggerConfig {
	return echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "ip", v.RemoteIP}
			if v.Error != nil {
				logger.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}
}
