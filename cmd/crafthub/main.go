// Command crafthub runs the CraftHub task board, either as a terminal
// board (the default) or as an HTTP server streaming board snapshots.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nhle/crafthub/internal/api"
	"github.com/nhle/crafthub/internal/app"
	"github.com/nhle/crafthub/internal/auth"
	"github.com/nhle/crafthub/internal/credential"
	"github.com/nhle/crafthub/internal/feed"
	"github.com/nhle/crafthub/internal/logging"
	"github.com/nhle/crafthub/internal/model"
	"github.com/nhle/crafthub/internal/store"
)

const usage = `Usage: crafthub [flags] [board|serve|init]

  board   open the terminal board (default)
  serve   serve the board stream and write API over HTTP
  init    write the default config file

Flags:
`

type options struct {
	configPath string
	projectID  string
	token      string
	login      string
	logout     bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "crafthub:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var opts options
	flags := pflag.NewFlagSet("crafthub", pflag.ContinueOnError)
	flags.StringVarP(&opts.configPath, "config", "c", model.DefaultConfigPath(), "config file")
	flags.StringVarP(&opts.projectID, "project", "p", "", "open this project's board")
	flags.StringVar(&opts.token, "token", "", "identity token for this run only")
	flags.StringVar(&opts.login, "login", "", "verify an identity token and keep it in the keyring")
	flags.BoolVar(&opts.logout, "logout", false, "forget the stored identity token")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	mode := "board"
	if flags.NArg() > 0 {
		mode = flags.Arg(0)
	}

	cfg, err := model.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	switch mode {
	case "init":
		if err := model.SaveConfig(opts.configPath, cfg); err != nil {
			return err
		}
		fmt.Println("wrote", opts.configPath)
		return nil
	case "board", "serve":
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", mode)
	}

	if opts.login != "" || opts.logout {
		return manageLogin(cfg, opts)
	}

	logger, err := logging.New(cfg.Log, mode == "serve")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	notifier, closeNotifier, err := openNotifier(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	hub := feed.NewHub(st, feed.Options{
		Notifier:        notifier,
		Logger:          logger,
		ResyncInterval:  time.Duration(cfg.Board.ResyncIntervalSec) * time.Second,
		BreakerFailures: cfg.Board.BreakerFailures,
	})

	if mode == "serve" {
		return serve(ctx, cfg, hub, logger)
	}
	return runBoard(cfg, opts, hub, logger)
}

// openStore connects the configured document store.
func openStore(ctx context.Context, cfg model.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		s, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// openNotifier returns the Redis notifier when enabled, otherwise an
// in-process one.
func openNotifier(ctx context.Context, cfg model.RedisConfig, logger *logrus.Logger) (feed.Notifier, func(), error) {
	if !cfg.Enabled {
		return feed.NewMemoryNotifier(), func() {}, nil
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	logger.WithField("addr", cfg.Addr).Info("change notifications via redis")

	return feed.NewRedisNotifier(rc, logger), func() { rc.Close() }, nil
}

func serve(ctx context.Context, cfg *model.AppConfig, hub *feed.Hub, logger *logrus.Logger) error {
	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	defer verifier.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	api.NewServer(hub, verifier, logger).Register(e)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("serving")
		errCh <- e.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func runBoard(cfg *model.AppConfig, opts options, hub *feed.Hub, logger *logrus.Logger) error {
	id, hint := resolveIdentity(cfg, opts, logger)

	p := tea.NewProgram(app.New(app.Options{
		Hub:        hub,
		Identity:   id,
		ProjectID:  opts.projectID,
		Logger:     logger,
		SignInHint: hint,
	}), tea.WithAltScreen())

	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}

// resolveIdentity verifies the first available token: the flag, the
// config (CRAFTHUB_AUTH_TOKEN), CRAFTHUB_TOKEN, then the keyring. A nil
// identity comes with the hint shown on the signed-out screen.
func resolveIdentity(cfg *model.AppConfig, opts options, logger *logrus.Logger) (*auth.Identity, string) {
	token := firstNonEmpty(opts.token, cfg.Auth.Token, os.Getenv("CRAFTHUB_TOKEN"))
	if token == "" {
		vault, err := credential.Open()
		if err != nil {
			logger.WithError(err).Warn("keyring unavailable")
		} else if token, err = vault.SessionToken(); err != nil && !errors.Is(err, credential.ErrNoToken) {
			logger.WithError(err).Warn("reading session token")
		}
	}
	if token == "" {
		return nil, "Run crafthub --login <token> to sign in."
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		logger.WithError(err).Error("building token verifier")
		return nil, "Token verification is not configured: set auth.secret or auth.jwks_url."
	}
	defer verifier.Close()

	id, err := verifier.Verify(token)
	if err != nil {
		logger.WithError(err).Warn("stored token rejected")
		return nil, "Your session is no longer valid. Run crafthub --login <token>."
	}
	logger.WithField("user_id", id.UserID).Info("signed in")
	return &id, ""
}

func manageLogin(cfg *model.AppConfig, opts options) error {
	vault, err := credential.Open()
	if err != nil {
		return err
	}

	if opts.logout {
		if err := vault.ClearSessionToken(); err != nil {
			return err
		}
		fmt.Println("signed out")
		return nil
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	defer verifier.Close()

	id, err := verifier.Verify(opts.login)
	if err != nil {
		return err
	}
	if err := vault.StoreSessionToken(opts.login); err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", id.Author())
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
