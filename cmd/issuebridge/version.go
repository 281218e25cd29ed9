package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issuebridge/internal/ui"
)

var (
	// Version is the current version of issuebridge (overridden by ldflags at build time)
	Version = "0.1.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
	// Commit is the git revision the binary was built from (optional ldflag)
	Commit = ""
)

type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit,omitempty"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{Version: Version, Build: Build, Commit: resolveCommitHash()}
			out := cmd.OutOrStdout()
			if a.format != ui.FormatTable {
				return a.render(out, "version", info, nil)
			}
			if info.Commit != "" {
				fmt.Fprintf(out, "issuebridge version %s (%s: %s)\n", info.Version, info.Build, shortCommit(info.Commit))
			} else {
				fmt.Fprintf(out, "issuebridge version %s (%s)\n", info.Version, info.Build)
			}
			return nil
		},
	}
}

func resolveCommitHash() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}
	return ""
}

func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
