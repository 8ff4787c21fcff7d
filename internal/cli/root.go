// Package cli implements the taskmint command line interface.
// Commands operate directly on the local database; `taskmint serve`
// starts the HTTP API for everything else.
package cli

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taskmint/taskmint/internal/app/economy"
	"github.com/taskmint/taskmint/internal/daemon"
	"github.com/taskmint/taskmint/internal/infra/sqlite"
)

var (
	cfgPath string
	cfg     daemon.Config
	logger  zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "taskmint",
	Short: "Gamified task manager with an append-only rewards ledger",
	Long: `taskmint turns completed tasks into durable, auditable economic
effects: points, lottery prizes and craftable reward items. Every grant
is a ledger row; balances are always derived, never counted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = daemon.Load(cfgPath)
		if err != nil {
			return err
		}
		logger = newLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default ~/.taskmint/config.toml)")
	rootCmd.PersistentFlags().String("user", "local", "acting user id")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from config.
func newLogger(lc daemon.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil || lc.Level == "" {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if lc.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(level).With().Timestamp().Logger()
}

// openDB opens the configured database.
func openDB() (*sqlite.DB, error) {
	return sqlite.Open(cfg.Data.Dir)
}

// newEngine wires a completion engine over db from config.
func newEngine(db *sqlite.DB) *economy.Engine {
	lottery := economy.NewLottery(
		newRand(),
		cfg.Economy.WinProbability,
		cfg.Economy.ConsolationPoints,
	)
	return economy.NewEngine(db, lottery, economy.Config{
		BasePoints: cfg.Economy.BasePoints,
		Top3Slots:  cfg.Economy.Top3Slots,
	}, logger)
}

// newRand seeds a fresh lottery source per process.
func newRand() economy.RandSource {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// actingUser resolves the --user flag.
func actingUser(cmd *cobra.Command) string {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return "local"
	}
	return user
}
