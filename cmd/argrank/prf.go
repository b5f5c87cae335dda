package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
)

const prfLongDesc string = `Rerank a run by pseudo-relevance feedback.

The top documents of each topic are taken as relevant. Their passages
are embedded, and every document is scored by how close its passages
sit to the feedback passages in the dense index.

Examples:
  argrank prf out/runs/run.fused --topics topics.xml -o run.prf
  argrank prf run.fused -t topics.xml --rel-docs 3 --k 50 --cutoff 2`

const prfShortDesc string = "Rerank a run by pseudo-relevance feedback"

type prfCommander struct {
	getApp func() *app

	topicsPath string
	outPath    string
	name       string
	relDocs    int
	k          int
	cutoff     int
}

func newPRFCmd(getApp func() *app) *cobra.Command {
	cmder := &prfCommander{getApp: getApp}

	cmd := &cobra.Command{
		Use:   "prf <run>",
		Short: prfShortDesc,
		Long:  prfLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.topicsPath, "topics", "t", "", "Path to the topics XML file")
	cmd.Flags().StringVarP(&cmder.outPath, "out", "o", "run.prf", "Output run file")
	cmd.Flags().StringVar(&cmder.name, "name", "argrank-prf", "Run name")
	cmd.Flags().IntVar(&cmder.relDocs, "rel-docs", 0, "Feedback documents per topic (default from config)")
	cmd.Flags().IntVar(&cmder.k, "k", 0, "Neighbors per feedback passage (default from config)")
	cmd.Flags().IntVar(&cmder.cutoff, "cutoff", -1, "Bound on the seed slice before rel-docs (default from config)")
	_ = cmd.MarkFlagRequired("topics")

	return cmd
}

func (c *prfCommander) run(ctx context.Context, out io.Writer, seedPath string) error {
	a := c.getApp()

	seed, err := run.ReadFile(seedPath)
	if err != nil {
		return err
	}
	topics, err := topic.ParseFile(c.topicsPath)
	if err != nil {
		return err
	}

	opts := a.prfOptions()
	if c.relDocs > 0 {
		opts.RelDocs = c.relDocs
	}
	if c.k > 0 {
		opts.K = c.k
	}
	if c.cutoff >= 0 {
		opts.Cutoff = c.cutoff
	}

	svc, err := a.prfService(ctx, opts)
	if err != nil {
		return err
	}
	reranked, err := svc.Rerank(ctx, seed, topics)
	if err != nil {
		return fmt.Errorf("prf: %w", err)
	}

	if err := run.WriteFile(c.outPath, reranked, c.name); err != nil {
		return err
	}
	fmt.Fprintf(out, "reranked %d topics with %d feedback docs into %s\n", reranked.Len(), opts.FeedbackSize(), c.outPath)
	return nil
}
