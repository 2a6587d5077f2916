package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowrun/fbp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario>",
		Short: "execute one of the runtime's canonical sample graphs",
		Long: `Execute one of the runtime's canonical sample graphs and print what each
sink observed.

Available scenarios: ` + strings.Join(scenarioNames(), ", "),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(args[0])
		},
	}
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runScenario(name string) error {
	build, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(scenarioNames(), ", "))
	}

	fmt.Printf("running %s\n", name)
	g := build()
	err := fbp.NewExecutor(g).Execute()
	if err != nil {
		printStatus(false, "%s failed: %v", name, err)
		log.WithError(err).Error("scenario failed")
		return err
	}
	printStatus(true, "%s completed", name)
	return nil
}
