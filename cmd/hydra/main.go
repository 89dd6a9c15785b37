package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cwt/hydra/internal/config"
	"github.com/cwt/hydra/internal/executor"
	"github.com/cwt/hydra/internal/hostlist"
	"github.com/cwt/hydra/internal/logging"
	"github.com/cwt/hydra/internal/output"
	"github.com/cwt/hydra/internal/sshx"
)

// defaultWidth is used when the terminal width cannot be detected.
const defaultWidth = 80

var (
	// Build-time variables (set via -ldflags)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global configuration
	cfg *config.Config

	// CLI flags
	noColor        bool
	separateOutput bool
	terminalWidth  int
	allowEmptyLine bool
	cursorControl  bool
	defaultKey     string
	hostTags       string
	connectTimeout time.Duration
	connectRetries int
	logLevel       string
	logFormat      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "hydra [flags] <hosts-file> <command> [args...]",
	Short: "Run a command on many hosts over SSH at once",
	Long: `hydra fans a single command out to every host in a hosts file, runs it
concurrently over SSH, and multiplexes the combined output on one terminal,
prefixing every line with a colored host name.

The hosts file holds CSV rows of "name,address,port,username,key-or-#[,tags]".
Rows starting with '#' are comments; '#' in the key column means "use the
default key or the conventional ~/.ssh keys". A .yaml/.yml hosts file is read
as a YAML inventory instead.

Examples:
  # Run uptime on the whole fleet
  hydra hosts.csv uptime

  # Non-interleaved per-host blocks, no colors
  hydra -S -N hosts.csv df -h

  # Only hosts tagged web or db, with a specific default key
  hydra -t web,db -K ~/.ssh/fleet_ed25519 hosts.csv systemctl status nginx`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		configManager := config.NewManager()
		loadedCfg, err := configManager.Load()
		if err != nil {
			return &SetupError{Message: fmt.Sprintf("failed to load configuration: %v", err)}
		}
		cfg = loadedCfg

		overrideConfigWithFlags(cmd)

		if err := configManager.Validate(cfg); err != nil {
			return &SetupError{Message: fmt.Sprintf("configuration validation failed: %v", err)}
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		hostFile := args[0]
		command := strings.Join(args[1:], " ")

		return run(hostFile, command)
	},
	SilenceUsage: true,
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hydra %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
			fmt.Printf("Built: %s\n", buildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version

	rootCmd.Flags().BoolVarP(&noColor, "no-color", "N", false, "Disable host-colored prompts and end-markers")
	rootCmd.Flags().BoolVarP(&separateOutput, "separate-output", "S", false, "Print each host's output as one atomic block instead of interleaved lines")
	rootCmd.Flags().IntVarP(&terminalWidth, "terminal-width", "W", 0, "Override the local display width (0 = auto-detect)")
	rootCmd.Flags().BoolVarP(&allowEmptyLine, "allow-empty-line", "E", false, "Print blank output lines instead of suppressing them")
	rootCmd.Flags().BoolVarP(&cursorControl, "cursor-control", "C", false, "Pass cursor-control sequences through unmodified (single-host or trusted interactive use)")
	rootCmd.Flags().StringVarP(&defaultKey, "default-key", "K", "", "Default SSH private key for hosts whose key column is '#'")
	rootCmd.Flags().StringVarP(&hostTags, "host-tags", "t", "", "Only run on hosts whose tags intersect this comma-delimited set")
	rootCmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 10*time.Second, "Per-attempt connection timeout")
	rootCmd.Flags().IntVar(&connectRetries, "connect-retries", 2, "Connection retry attempts after the first")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "error", "Log level (info, error)")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "text", "Log format (json, text)")
}

func overrideConfigWithFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("no-color") {
		cfg.NoColor = noColor
	}
	if cmd.Flags().Changed("separate-output") {
		cfg.SeparateOutput = separateOutput
	}
	if cmd.Flags().Changed("terminal-width") {
		cfg.TerminalWidth = terminalWidth
	}
	if cmd.Flags().Changed("allow-empty-line") {
		cfg.AllowEmptyLine = allowEmptyLine
	}
	if cmd.Flags().Changed("cursor-control") {
		cfg.CursorControl = cursorControl
	}
	if cmd.Flags().Changed("default-key") {
		cfg.DefaultKey = defaultKey
	}
	if cmd.Flags().Changed("host-tags") {
		cfg.HostTags = hostTags
	}
	if cmd.Flags().Changed("connect-timeout") {
		cfg.ConnectTimeout = connectTimeout
	}
	if cmd.Flags().Changed("connect-retries") {
		cfg.ConnectRetries = connectRetries
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}
}

func run(hostFile, command string) error {
	logger := logging.NewFromConfig(cfg.LogLevel, cfg.LogFormat, false)

	hosts, maxNameLen, err := hostlist.Load(hostFile, cfg.HostTags, logger)
	if err != nil {
		return &SetupError{Message: err.Error()}
	}
	if len(hosts) == 0 {
		return &SetupError{Message: fmt.Sprintf("no eligible hosts in %s", hostFile)}
	}

	if cfg.NoColor {
		color.NoColor = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	runner := &sshx.Runner{
		Establisher: &sshx.Establisher{
			Timeout:    cfg.ConnectTimeout,
			MaxRetries: cfg.ConnectRetries,
			Logger:     logger,
		},
		DefaultKey: cfg.DefaultKey,
		Capture:    cfg.SeparateOutput,
		Logger:     logger,
	}

	executor.Run(ctx, hosts, runner, executor.Options{
		Command:            command,
		LocalWidth:         displayWidth(cfg.TerminalWidth),
		MaxNameLen:         maxNameLen,
		AllowEmptyLine:     cfg.AllowEmptyLine,
		AllowCursorControl: cfg.CursorControl,
		Palette:            output.NewPalette(!cfg.NoColor),
		Sink:               output.NewSink(os.Stdout),
		Logger:             logger,
	})

	// Individual host failures were reported inline under their prompts;
	// best-effort fan-out still exits zero.
	return nil
}

// displayWidth resolves the local display width: explicit override, then the
// terminal, then COLUMNS, then 80.
func displayWidth(override int) int {
	if override > 0 {
		return override
	}

	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}

	if columns := os.Getenv("COLUMNS"); columns != "" {
		if width, err := strconv.Atoi(columns); err == nil && width > 0 {
			return width
		}
	}

	return defaultWidth
}

// SetupError represents an error during setup/configuration (exit code 2)
type SetupError struct {
	Message string
}

func (e *SetupError) Error() string {
	return e.Message
}

// getExitCode maps an error to the process exit code: 0 on success, 2 for
// setup failures (unreadable hosts file, zero eligible hosts, bad flags).
// Individual host failures are reported inline and never reach here.
func getExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 2
}
