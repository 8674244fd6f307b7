package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/casetrace/trace-console/internal/audit"
	"github.com/casetrace/trace-console/internal/bus"
	"github.com/casetrace/trace-console/internal/casefile"
	"github.com/casetrace/trace-console/internal/fingerprint"
	"github.com/casetrace/trace-console/internal/store"
)

var (
	cfgFile  string
	dataDir  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trace-console",
	Short: "Terminal-first forensic notes log with tamper-evident fingerprints",
	Long: `Trace-Console keeps a local, single-user log of investigation notes
organized into cases and evidence items. Every note is fingerprinted with
SHA-256 over its timestamp and content at creation, optionally GPG-signed,
and scanned for indicators of compromise and #tags.

Features:
- Case / evidence / note hierarchy with an active working context
- Per-note SHA-256 fingerprints and optional GPG clearsign signatures
- Automatic IOC extraction (IPs, domains, URLs, emails, file hashes)
- Terminal user interface plus scriptable subcommands
- Markdown export with chain-of-custody audit trail

Run without arguments to open the interactive console.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trace-console.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default is $HOME/.trace-console)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("data.dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".trace-console" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trace-console")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Set defaults
	viper.SetDefault("data.dir", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("signing.binary", "gpg")
	viper.SetDefault("signing.timeout", "10s")
	viper.SetDefault("lock.timeout", "5s")
	viper.SetDefault("redis.url", "")
	viper.SetDefault("ui.theme", "dark")
}

// GetConfig returns the current configuration values
func GetConfig() Config {
	return Config{
		Data: DataConfig{
			Dir: viper.GetString("data.dir"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
		},
		Signing: SigningConfig{
			Binary:  viper.GetString("signing.binary"),
			Timeout: viper.GetDuration("signing.timeout"),
		},
		Lock: LockConfig{
			Timeout: viper.GetDuration("lock.timeout"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("redis.url"),
		},
		UI: UIConfig{
			Theme: viper.GetString("ui.theme"),
		},
	}
}

// Config represents the application configuration
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Log     LogConfig     `mapstructure:"log"`
	Signing SigningConfig `mapstructure:"signing"`
	Lock    LockConfig    `mapstructure:"lock"`
	Redis   RedisConfig   `mapstructure:"redis"`
	UI      UIConfig      `mapstructure:"ui"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SigningConfig struct {
	Binary  string        `mapstructure:"binary"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LockConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type UIConfig struct {
	Theme string `mapstructure:"theme"`
}

// App bundles the long-lived handles a command needs. Close releases them.
type App struct {
	Config  Config
	Service *casefile.Service
	Store   *store.Store
	Audit   *audit.Log
	Logger  *log.Logger

	activityBus bus.Bus
}

// Close releases the audit database handle and the activity bus connection.
func (a *App) Close() {
	if a.activityBus != nil {
		a.activityBus.Close()
	}
	if a.Audit != nil {
		a.Audit.Close()
	}
}

// openApp wires the store, signer, audit log, and activity bus into a
// service using the effective configuration.
func openApp() (*App, error) {
	config := GetConfig()
	logger := newLogger(config.Log.Level)

	st, err := store.NewStore(config.Data.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	st.SetLockTimeout(config.Lock.Timeout)

	auditLog, err := audit.Open(st.AuditPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	signer := fingerprint.NewSigner(config.Signing.Binary, config.Signing.Timeout, logger)
	activityBus := bus.NewBus(config.Redis.URL, logger)

	return &App{
		Config:      config,
		Service:     casefile.New(st, signer, auditLog, activityBus, logger),
		Store:       st,
		Audit:       auditLog,
		Logger:      logger,
		activityBus: activityBus,
	}, nil
}

// newLogger builds the diagnostic logger for the configured level. Anything
// below debug stays quiet; user-facing output goes to stdout separately. The
// prefix and flags stay on regardless so commands can redirect the output to
// a file later and still get attributable lines.
func newLogger(level string) *log.Logger {
	var out io.Writer = io.Discard
	if strings.EqualFold(level, "debug") {
		out = os.Stderr
	}
	return log.New(out, "[trace-console] ", log.LstdFlags)
}

// printWarnings writes accumulated soft failures to stderr in a uniform shape.
func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
}
