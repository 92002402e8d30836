package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/shotcheck/internal/report"
)

var (
	renderFormat string
	renderOut    string
)

var renderCmd = &cobra.Command{
	Use:   "render <report.json>",
	Short: "Render a saved report",
	Long:  `Render a JSON report as html, markdown (PR body), text or json.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := report.Load(args[0])
		if err != nil {
			return err
		}

		content, err := report.Render(rep, report.Format(renderFormat))
		if err != nil {
			return err
		}

		if renderOut == "" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		}
		return os.WriteFile(renderOut, []byte(content), 0644)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", string(report.FormatText), "Output format: html, markdown, text, json")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Write to this file instead of stdout")
}
