package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/omniscrape/config"
	"github.com/use-agent/omniscrape/engine"
)

var (
	configPath      string
	headed          bool
	static          bool
	downloadsDir    string
	noMediaDownload bool

	rootCmd = &cobra.Command{
		Use:   "omniscrape <url>",
		Short: "Extract media, images, text or listings from a web page",
		Long: `omniscrape routes a URL to the right extraction strategy: known video
sites are resolved directly, everything else is opened in a browser,
classified and handed to a media, image, text or site extractor.
Results land under the downloads directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runExtract,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./omniscrape.yaml)")
	rootCmd.PersistentFlags().StringVar(&downloadsDir, "downloads", "", "downloads directory (overrides download.dir)")
	rootCmd.PersistentFlags().BoolVar(&headed, "headed", false, "show the browser window so challenges can be solved by hand")

	rootCmd.Flags().BoolVar(&static, "static", false, "read the page over plain HTTP without a browser")
	rootCmd.Flags().BoolVar(&noMediaDownload, "no-media-download", false, "resolve media and images without downloading them")

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies the persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if downloadsDir != "" {
		cfg.Download.Dir = downloadsDir
	}
	if headed {
		cfg.Browser.Headless = false
	}
	return cfg, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if static {
		cfg.Engine.Static = true
	}
	if noMediaDownload {
		cfg.Media.Download = false
	}
	initLogger(cfg.Log, "text")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := a.dispatcher.Run(ctx, args[0], engine.RunOptions{})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		slog.Warn("printing report failed", "error", err)
	}

	if engine.IsRunFailure(report, runErr) {
		if runErr == nil {
			runErr = fmt.Errorf("run produced no result")
		}
		slog.Error("extraction failed", "url", args[0], "error", runErr)
		return runErr
	}
	return nil
}

// initLogger configures slog based on the LogConfig. fallbackFormat applies
// when the config leaves the format empty.
func initLogger(cfg config.LogConfig, fallbackFormat string) {
	format := cfg.Format
	if format == "" {
		format = fallbackFormat
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
