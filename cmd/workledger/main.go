package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"github.com/alexanderramin/workledger/internal/cli"
	"github.com/alexanderramin/workledger/internal/config"
	"github.com/alexanderramin/workledger/internal/contributor"
	"github.com/alexanderramin/workledger/internal/db"
	"github.com/alexanderramin/workledger/internal/jira"
	"github.com/alexanderramin/workledger/internal/jiracache"
	"github.com/alexanderramin/workledger/internal/ledger"
	"github.com/alexanderramin/workledger/internal/prefetch"
	"github.com/alexanderramin/workledger/internal/remote"
	"github.com/alexanderramin/workledger/internal/repository"
	"github.com/alexanderramin/workledger/internal/service"
	"github.com/alexanderramin/workledger/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Plain output when piped.
	interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !interactive {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Wire repositories
	mappingRepo := repository.NewSQLiteEpicMappingRepo(database)
	snapshotRepo := repository.NewSQLiteSnapshotRepo(database)
	noticeRepo := repository.NewSQLiteNoticeRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	// Call logging goes to stderr only when enabled.
	var callObserver remote.Observer = remote.NoopObserver{}
	var useCaseObserver service.UseCaseObserver = service.NoopUseCaseObserver{}
	logger := slog.New(slog.DiscardHandler)
	if cfg.LogCalls {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		callObserver = remote.NewLogObserver(os.Stderr)
		useCaseObserver = service.NewLogUseCaseObserver(logger.With("component", "service"))
	}

	// Wire remote clients
	ledgerClient := ledger.NewClient(cfg.LedgerRemote(), ledger.Credentials{
		Username: cfg.Ledger.Username,
		Password: cfg.Ledger.Password,
	}, callObserver)
	jiraClient := jira.NewClient(cfg.JiraRemote(), jira.Credentials{
		Email: cfg.Jira.Email,
		Token: cfg.Jira.Token,
	}, cfg.Jira.MaxResults, callObserver).WithLogger(logger.With("component", "jira"))

	// Wire Jira detail cache and background prefetch
	cache := jiracache.New(jiraClient)
	opts := cfg.PrefetchOptions()
	opts.Logger = logger.With("component", "prefetch")
	scheduler := prefetch.New(cache, opts)
	// Loads still running at exit are abandoned.
	defer scheduler.Reset()

	positions := contributor.NewPositions(snapshotRepo, cfg.PositionPolicy(), nil)
	notices := service.NewStoredNoticeBoard(noticeRepo, logger.With("component", "notices"))

	// Wire services
	logSvc := service.NewLogService(ledgerClient, notices, useCaseObserver)
	jiraSvc := service.NewJiraService(
		mappingRepo,
		uow,
		cache,
		scheduler,
		positions,
		config.NewJiraState(&cfg),
		notices,
		useCaseObserver,
	)

	app := &cli.App{
		Log:     logSvc,
		Jira:    jiraSvc,
		Notices: notices,
		Addr:    cfg.Addr,
		Serve: func(ctx context.Context, addr string) error {
			srv := web.NewServer(jiraSvc, notices, logger.With("component", "web"))
			return srv.Serve(ctx, addr)
		},

		Interactive: interactive,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute root command
	rootCmd := cli.NewRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}
