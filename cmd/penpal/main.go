package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/penpal/internal/adapters/chrome"
	"github.com/bft-labs/penpal/internal/adapters/fs"
	"github.com/bft-labs/penpal/internal/adapters/speech"
	"github.com/bft-labs/penpal/internal/adapters/static"
	"github.com/bft-labs/penpal/internal/adapters/xlsx"
	"github.com/bft-labs/penpal/internal/app"
	"github.com/bft-labs/penpal/internal/cliconfig"
	"github.com/bft-labs/penpal/internal/ports"
	plog "github.com/bft-labs/penpal/pkg/log"
)

const longHelp = `
Log in to the pen-pal directory, walk every listing page and keep an
up-to-date spreadsheet of the profiles found.

Each run writes the records that are new since the last run to a dated
snapshot ({prefix}_YYYY-MM-DD.xlsx) and appends them to the master
({prefix}_all.xlsx). Records already in the master are never written twice.

The login page is protected by a checkbox captcha; when the image-free
audio challenge is offered, the clip is transcribed and answered. The audio
path needs a recognizer key (--speech-key or PENPAL_SPEECH_KEY); without one
only auto-approved logins succeed.`

var exampleUsage = strings.TrimSpace(`
  penpal --base-url https://example.org/penpals --login-url https://example.org/user/login \
         --username alice --password s3cret --headless
  penpal --config $HOME/.penpal/config.toml --max-pages 10
  penpal status --output-dir prisoner_data
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// reportedError marks a failure the pipeline already logged.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// bootstrap logs until the configured logger exists.
var bootstrap ports.Logger = plog.NewZerologAdapterWithLogger(
	zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger(),
)

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "penpal",
		Short:         "Crawl the pen-pal directory into deduplicated spreadsheets",
		Long:          strings.TrimSpace(longHelp),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closer, err := plog.NewZerologAdapter(plog.Options{
				Level:   cfg.LogLevel,
				File:    cfg.LogFile,
				Console: os.Stderr,
			})
			if err != nil {
				return err
			}
			defer closer.Close()
			bootstrap = logger

			logger.Info("configuration", plog.Any("config", cfg.Masked()))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipeline, err := buildPipeline(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if _, err := pipeline.Run(ctx); err != nil {
				return reportedError{err}
			}
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			repo := fs.NewStatusFileRepository(cfg.OutputDir)
			st, err := repo.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load status: %w", err)
			}
			if st.StartedAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "no run recorded at %s\n", cfg.StatusPath())
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	root.AddCommand(status)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.penpal/config.toml)")
	pf.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory for snapshots, master and status.json")

	f := root.Flags()
	f.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "first listing page URL")
	f.StringVar(&cfg.LoginURL, "login-url", cfg.LoginURL, "login page URL")
	f.StringVar(&cfg.Username, "username", cfg.Username, "account user name")
	f.StringVar(&cfg.Password, "password", cfg.Password, "account password")

	f.IntVar(&cfg.StartPage, "start-page", cfg.StartPage, "listing page to start from (0 is the base URL itself)")
	f.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "stop after this many pages (0 means all)")
	f.StringVar(&cfg.FilePrefix, "file-prefix", cfg.FilePrefix, "prefix of the xlsx file names")

	f.StringVar(&cfg.Driver, "driver", cfg.Driver, "browser driver: chrome or static")
	f.BoolVar(&cfg.Headless, "headless", cfg.Headless, "run chrome without a window")
	f.StringVar(&cfg.ChromePath, "chrome-path", cfg.ChromePath, "chrome binary to launch (default: search PATH)")
	f.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "override the browser user agent")

	f.IntVar(&cfg.LoginAttempts, "login-attempts", cfg.LoginAttempts, "login attempts before giving up")
	f.IntVar(&cfg.PageAttempts, "page-attempts", cfg.PageAttempts, "loads of a listing page before giving up")
	f.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "first retry delay")
	f.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "retry delay cap")
	f.DurationVar(&cfg.ElementTimeout, "timeout", cfg.ElementTimeout, "wait for a page element")
	f.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "timeout of out-of-browser HTTP requests")
	f.DurationVar(&cfg.DelayMin, "delay-min", cfg.DelayMin, "minimum pause between requests")
	f.DurationVar(&cfg.DelayMax, "delay-max", cfg.DelayMax, "maximum pause between requests")

	f.StringVar(&cfg.SpeechURL, "speech-url", cfg.SpeechURL, "speech recognition endpoint")
	f.StringVar(&cfg.SpeechKey, "speech-key", cfg.SpeechKey, "speech recognition API key (required for the audio challenge)")
	f.StringVar(&cfg.SpeechLang, "speech-lang", cfg.SpeechLang, "language of the audio challenge")

	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this file (empty disables)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := root.Execute(); err != nil {
		logFailure(bootstrap, err)
		os.Exit(1)
	}
}

// logFailure logs err unless the pipeline already did.
func logFailure(logger ports.Logger, err error) {
	var reported reportedError
	if errors.As(err, &reported) {
		return
	}
	logger.Error("penpal", plog.Err(err))
}

// loadConfig layers the config file, .env and PENPAL_* variables under the
// flags the user set.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && (cfgPath != "" || cliconfig.FileExists(cfgFile)) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.LoadDotEnv(".env"); err != nil {
		return err
	}
	return cliconfig.ApplyEnvConfig(cfg, changed)
}

func buildPipeline(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (*app.Pipeline, error) {
	sel := app.DefaultSelectors()
	if err := sel.Apply(cfg.Selectors); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.HTTPTimeout, Jar: jar}

	var browser ports.Browser
	switch cfg.Driver {
	case cliconfig.DriverStatic:
		browser = static.NewBrowser(client, logger)
	default:
		b, err := chrome.NewBrowser(ctx, chrome.Options{
			Headless:  cfg.Headless,
			ExecPath:  cfg.ChromePath,
			UserAgent: cfg.UserAgent,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("start browser: %w", err)
		}
		browser = b
	}

	transcriber := speech.NewTranscriber(speech.Config{
		Endpoint: cfg.SpeechURL,
		Key:      cfg.SpeechKey,
		Language: cfg.SpeechLang,
	}, client, logger)

	solver := app.NewCaptchaSolver(browser, transcriber, client, sel, cfg.ElementTimeout, logger)
	auth := app.NewAuthenticator(app.AuthConfig{
		LoginURL:       cfg.LoginURL,
		Credential:     cfg.Credential(),
		MaxAttempts:    cfg.LoginAttempts,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
		ElementTimeout: cfg.ElementTimeout,
	}, browser, solver, sel, logger)

	extractor := app.NewExtractor(browser, sel, cfg.ElementTimeout, logger)
	crawler := app.NewCrawler(app.CrawlConfig{
		BaseURL:        cfg.BaseURL,
		StartPage:      cfg.StartPage,
		MaxPages:       cfg.MaxPages,
		PageAttempts:   cfg.PageAttempts,
		BackoffInitial: cfg.BackoffInitial,
		BackoffMax:     cfg.BackoffMax,
		DelayMin:       cfg.DelayMin,
		DelayMax:       cfg.DelayMax,
		ElementTimeout: cfg.ElementTimeout,
	}, browser, extractor, sel, logger)

	store := app.NewDedupStore(xlsx.NewStore(cfg.OutputDir), cfg.MasterName(), logger)
	status := fs.NewStatusFileRepository(cfg.OutputDir)

	return app.NewPipeline(browser, auth, crawler, store, status, cfg.SnapshotName(time.Now()), logger), nil
}
