package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/gene-expression-sim/core"
	"github.com/signalsfoundry/gene-expression-sim/internal/logging"
	"github.com/signalsfoundry/gene-expression-sim/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario]",
	Short: "Check a scenario file without running it",
	Long: `Parses the scenario, builds its engine and populates it, then prints what it
would simulate. Schedule arguments are checked as well.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/scenario.yaml"
		if len(args) > 0 {
			path = args[0]
		}
		if err := runValidate(path, cmd.OutOrStdout(), loggerFor(cmd)); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string, out io.Writer, log logging.Logger) error {
	scenario, err := core.LoadScenarioFile(path)
	if err != nil {
		return err
	}
	e, err := scenario.NewEngine(core.WithLogger(log))
	if err != nil {
		return err
	}

	genes := 0
	if d := e.DNA(); d != nil {
		genes = len(d.Genes())
	}
	fmt.Fprintf(out, "scenario %q is valid\n", scenario.Name)
	fmt.Fprintf(out, "  genes:                 %d\n", genes)
	fmt.Fprintf(out, "  rna polymerases:       %d\n", e.Count(model.KindRnaPolymerase))
	fmt.Fprintf(out, "  transcription factors: %d\n", e.Count(model.KindTranscriptionFactor))
	fmt.Fprintf(out, "  ribosomes:             %d\n", e.Count(model.KindRibosome))
	fmt.Fprintf(out, "  mrna destroyers:       %d\n", e.Count(model.KindMessengerRnaDestroyer))
	fmt.Fprintf(out, "  scheduled events:      %d\n", len(scenario.Schedule))
	return nil
}
