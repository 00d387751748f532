package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// errProjectFailures marks a run that completed and reported but had
// per-project errors. main maps it to exit 1; every other error is a
// fatal run error and exits 2.
var errProjectFailures = errors.New("completed with project errors")

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	markdown   bool
}

var rootCmd = &cobra.Command{
	Use:   "glm",
	Short: "Mirror GitLab groups into a local directory tree",
	Long: "glm reconciles a local directory tree against the projects of one or\n" +
		"more GitLab groups: missing projects are cloned, existing working\n" +
		"copies are fetched, and local paths with no remote counterpart are\n" +
		"reported as orphans.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Config file path (default: search .glmirror.yaml, ~/.config/glmirror/config.yaml)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVar(&rootFlags.markdown, "markdown", false, "Render tables as Markdown instead of ASCII")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.Version = version
}

// exitCode maps a command error to the process exit status: 0 clean,
// 1 completed with project errors, 2 fatal run error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errProjectFailures):
		return 1
	default:
		return 2
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, errProjectFailures) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
