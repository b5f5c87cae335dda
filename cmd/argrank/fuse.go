package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/usecase/fusion"
)

const fuseLongDesc string = `Fuse two run files.

interpolate (default) adds alpha times the second run's scores to the
first run. Topics only in the second run are dropped. rrf ignores scores
and sums 1/(k + rank) over both runs.

Examples:
  argrank fuse out/runs/run.bm25 out/runs/run.semantic --alpha 0.5 -o run.fused
  argrank fuse run.a run.b --method rrf -o run.rrf`

const fuseShortDesc string = "Fuse two run files"

type fuseCommander struct {
	getApp func() *app

	method   string
	alpha    float64
	alphaSet bool
	rrfK     int
	outPath  string
	name     string
}

func newFuseCmd(getApp func() *app) *cobra.Command {
	cmder := &fuseCommander{getApp: getApp}

	cmd := &cobra.Command{
		Use:   "fuse <run1> <run2>",
		Short: fuseShortDesc,
		Long:  fuseLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.alphaSet = cmd.Flags().Changed("alpha")
			return cmder.run(cmd.OutOrStdout(), args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&cmder.method, "method", "m", "interpolate", "Fusion method: interpolate or rrf")
	cmd.Flags().Float64Var(&cmder.alpha, "alpha", 0, "Weight of the second run (default from config)")
	cmd.Flags().IntVar(&cmder.rrfK, "rrf-k", fusion.DefaultRRFK, "RRF rank constant")
	cmd.Flags().StringVarP(&cmder.outPath, "out", "o", "run.fused", "Output run file")
	cmd.Flags().StringVar(&cmder.name, "name", "argrank-fused", "Run name")

	return cmd
}

func (c *fuseCommander) run(out io.Writer, path1, path2 string) error {
	run1, err := run.ReadFile(path1)
	if err != nil {
		return err
	}
	run2, err := run.ReadFile(path2)
	if err != nil {
		return err
	}

	var fused run.Run
	switch c.method {
	case "interpolate":
		alpha := c.getApp().cfg.Fusion.Alpha
		if c.alphaSet {
			alpha = c.alpha
		}
		fused = fusion.Interpolate(run1, run2, alpha)
	case "rrf":
		fused = fusion.ReciprocalRank(c.rrfK, run1, run2)
	default:
		return fmt.Errorf("unknown fusion method %q", c.method)
	}

	if err := run.WriteFile(c.outPath, fused, c.name); err != nil {
		return err
	}
	fmt.Fprintf(out, "fused %d topics into %s\n", fused.Len(), c.outPath)
	return nil
}
