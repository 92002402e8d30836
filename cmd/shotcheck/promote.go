package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/shotcheck/internal/manifest"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

var promoteCFNVersion string

var promoteCmd = &cobra.Command{
	Use:   "promote <manifest>",
	Short: "Accept a batch's screenshots as the new baselines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}

		manager, err := snapshot.NewManager(cfg.Root, cfg.RenderOptions())
		if err != nil {
			return err
		}

		result, err := manager.Promote(m, promoteCFNVersion, time.Now())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s Promoted %d screenshot(s) from batch %s (template %s)\n",
			verdictIcon(snapshot.VerdictPass), result.Copied, result.BatchID, result.CFNVersion)
		fmt.Fprintf(w, "   %s\n", paint(dimStyle, "Manifest: "+manager.Storage().Path(result.ManifestKey)))
		for _, key := range result.Missing {
			logger.Warn("screenshot missing from current", zap.String("key", key))
			fmt.Fprintf(w, "%s missing %s\n", verdictIcon(snapshot.VerdictReview), key)
		}
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteCFNVersion, "cfn-version", "", "Template version recorded on the baselines (default \"unknown\")")
}
