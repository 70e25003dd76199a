package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version is the current jsaingest version (overridden by ldflags at build time)
	Version = "2.1.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if commit := resolveCommit(); commit != "" {
			fmt.Printf("jsaingest version %s (%s: %s)\n", Version, Build, commit)
			return
		}
		fmt.Printf("jsaingest version %s (%s)\n", Version, Build)
	},
}

// resolveCommit returns the short VCS revision baked into the binary, if any.
func resolveCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
