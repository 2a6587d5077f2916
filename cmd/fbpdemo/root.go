package main

import (
	"fmt"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	okStatus   = color.New(color.FgGreen, color.Bold).SprintFunc()("√")
	failStatus = color.New(color.FgRed, color.Bold).SprintFunc()("×")

	verbose bool
)

// newRootCmd builds the fbpdemo root command: a small CLI that runs the
// runtime's canonical scenarios and, separately, serves its Prometheus
// metrics for a live demo graph.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fbpdemo",
		Short: "fbpdemo runs sample flow-based graphs against the fbp runtime",
		Long:  `fbpdemo runs sample flow-based graphs against the fbp runtime.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
		},
	}

	addVerboseFlag(root.PersistentFlags())
	root.AddCommand(newRunCmd())
	root.AddCommand(newServeMetricsCmd())
	return root
}

// addVerboseFlag registers the --verbose flag on fs. Taking the flag set
// explicitly (rather than always reaching for cmd.PersistentFlags() inline)
// is linkerd2's own pattern for flags shared across subcommands (see
// cli/flag).
func addVerboseFlag(fs *pflag.FlagSet) {
	fs.BoolVar(&verbose, "verbose", false, "turn on debug logging")
}

func printStatus(ok bool, format string, args ...any) {
	glyph := okStatus
	if !ok {
		glyph = failStatus
	}
	fmt.Printf("%s %s\n", glyph, fmt.Sprintf(format, args...))
}
