package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gamecfg/internal/build"
	"gamecfg/internal/data/artifact"
	"gamecfg/internal/data/validate"
	"gamecfg/internal/data/value"
)

var (
	editInput    string
	editOutput   string
	editValidate bool
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Load, optionally validate, and optionally export an items document",
	Long: `Edit reads an items document in JSON or YAML. With --validate every
record is checked and all diagnostics are printed; the command then exits 1.
With --output the records are written as JSON, even when validation fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		input := editInput
		if input == "" {
			input = cfg.ItemsPath()
		}

		raw, err := build.LoadItems(input)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %d items from %s\n", len(raw), input)

		var diags validate.Diagnostics
		if editValidate {
			diags = validate.Items(raw)
			renderDiagnostics(out, diags)
		}

		if editOutput != "" {
			b, err := artifact.EncodeValue(value.List(raw...))
			if err != nil {
				return err
			}
			if err := artifact.WriteFile(editOutput, b); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %d items to %s\n", len(raw), editOutput)
		}

		if diags.Failed() {
			return errValidationFailed
		}
		return nil
	},
}

func init() {
	editCmd.Flags().StringVarP(&editInput, "input", "i", "", "input JSON/YAML file (default: items source from config)")
	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "optional output JSON path")
	editCmd.Flags().BoolVar(&editValidate, "validate", false, "validate items and print diagnostics")
}
