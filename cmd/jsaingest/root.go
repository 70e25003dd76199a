package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsaops/jsaingest/internal/config"
)

var (
	cfgPath     string
	verboseFlag bool // Enable debug output
	quietFlag   bool // Errors only
	noColor     bool

	// cfg is the loaded configuration, available to every command after
	// PersistentPreRunE.
	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable styled output")

	// --version on the root command, same behavior as the version subcommand
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "jsaingest",
	Short: "jsaingest - JCMT Science Archive metadata ingestion",
	Long: `Ingest reduced JCMT data products into the CAOM-2 metadata archive.

jsaingest reads the FITS headers written by the JSA processing pipelines,
derives observation, plane and artifact identities, resolves membership and
provenance against the archive catalog, and writes the assembled CAOM-2
observation records to the repository. Planes left behind by earlier runs
of the same recipe instances are removed.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("jsaingest version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			// termenv and glamour both honor NO_COLOR.
			_ = os.Setenv("NO_COLOR", "1")
		}
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		return nil
	},
}

// configFilePath is where `init` and `config set` write.
func configFilePath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultPath()
}

// logLevel maps the verbosity flags onto a slog level.
func logLevel() slog.Level {
	switch {
	case quietFlag:
		return slog.LevelError
	case verboseFlag:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the text logger every component receives.
func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel()}))
}
