package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

var compareDiffOut string

var compareCmd = &cobra.Command{
	Use:   "compare <baseline> <current>",
	Short: "Compare two screenshots",
	Long: `Compare two image files and classify the difference.

Exits 1 when the difference is at or above the fail threshold.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := compareFiles(cmd.OutOrStdout(), snapshot.NewDiffer(cfg.RenderOptions()), args[0], args[1], compareDiffOut)
		if err != nil {
			return err
		}
		if v == snapshot.VerdictFail {
			return errRegressions
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&compareDiffOut, "diff", "d", "", "Write the diff PNG to this path")
}

func compareFiles(w io.Writer, differ *snapshot.Differ, baselinePath, currentPath, diffOut string) (snapshot.Verdict, error) {
	result, err := differ.CompareFiles(baselinePath, currentPath)
	if err != nil {
		return "", err
	}

	if diffOut != "" {
		if err := os.MkdirAll(filepath.Dir(diffOut), 0755); err != nil {
			return "", fmt.Errorf("create diff dir: %w", err)
		}
		if err := os.WriteFile(diffOut, result.DiffImage, 0644); err != nil {
			return "", fmt.Errorf("write diff: %w", err)
		}
	}

	v := result.Verdict()
	fmt.Fprintf(w, "%s %s (%d of %d pixels)\n",
		verdictIcon(v),
		paint(verdictStyle(v), snapshot.DescribeDiff(result.DiffPercentage)),
		result.DiffPixels,
		result.TotalPixels)
	if diffOut != "" {
		fmt.Fprintf(w, "   %s\n", paint(dimStyle, "Diff: "+diffOut))
	}
	return v, nil
}
