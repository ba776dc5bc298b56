package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/client"
	"github.com/scadawatch/scadawatch/internal/config"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/scadawatch/scadawatch/internal/version"
	"github.com/scadawatch/scadawatch/internal/webui"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	logLevel   string
	org        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "scadawatch",
		Short:         "Headless SCADA alarm monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "/config/"+config.MainFile, "Path to scadawatch configuration")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	root.PersistentFlags().StringVar(&flags.org, "org", "", "Organization id; overrides config and token")

	root.AddCommand(
		newMonitorCmd(flags),
		newHistoryCmd(flags),
		newMeterCmd(flags),
		newStatusCmd(flags, "ack", "Acknowledge an alarm", types.StatusAcknowledged),
		newStatusCmd(flags, "resolve", "Resolve an alarm", types.StatusResolved),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "scadawatch", version.GetFullVersion())
		},
	}
}

// runtimeEnv is what every backend-facing command needs.
type runtimeEnv struct {
	cfg        *config.Config
	configPath string
	logger     zerolog.Logger
	logBuffer  *webui.LogBuffer
	client     *client.Client
	operator   string
}

func setup(flags *globalFlags, out io.Writer) (*runtimeEnv, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logLevelParsed, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevelParsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevelParsed)

	// Write to both the console and the log buffer
	logBuffer := webui.NewLogBuffer(cfg.Logging.BufferSize)
	logger := zerolog.New(io.MultiWriter(out, logBuffer)).With().
		Timestamp().
		Str("version", version.GetVersion()).
		Logger()

	token := cfg.Token()
	if token == "" {
		return nil, fmt.Errorf("environment variable %s is not set", cfg.Server.TokenEnv)
	}

	org := cfg.Server.Organization
	var operator string
	claims, err := client.ParseToken(token)
	if err != nil {
		logger.Warn().Err(err).Msg("Token claims unreadable")
	} else {
		operator = claims.Email
		if org == "" {
			org = claims.OrganizationID
		}
		if claims.Expired(time.Now()) {
			logger.Warn().Time("expired_at", claims.ExpiresAt.Time).Msg("Bearer token has expired")
		}
	}
	if flags.org != "" {
		org = flags.org
	}
	if org == "" {
		return nil, errors.New("no organization configured and none found in the token")
	}

	cl, err := client.New(cfg.Server.BaseURL, token,
		client.WithTimeout(cfg.Server.RequestTimeout),
		client.WithOrganization(org),
	)
	if err != nil {
		return nil, err
	}

	configPath, _ := filepath.Abs(flags.configPath)
	return &runtimeEnv{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		logBuffer:  logBuffer,
		client:     cl,
		operator:   operator,
	}, nil
}
