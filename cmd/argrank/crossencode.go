package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
	ceuc "github.com/kailas-cloud/argrank/internal/usecase/crossencoder"
)

const crossencodeLongDesc string = `Rerank the head of a run with a cross-encoder.

Each of the top-k documents is scored against the topic title by its
best passage. Documents that cannot be scored are logged and dropped.

Examples:
  argrank crossencode out/runs/run.prf --topics topics.xml -o run.crossenc
  argrank crossencode run.prf -t topics.xml --top-k 50`

const crossencodeShortDesc string = "Rerank a run with a cross-encoder"

type crossencodeCommander struct {
	getApp func() *app

	topicsPath string
	outPath    string
	name       string
	topK       int
}

func newCrossEncodeCmd(getApp func() *app) *cobra.Command {
	cmder := &crossencodeCommander{getApp: getApp}

	cmd := &cobra.Command{
		Use:   "crossencode <run>",
		Short: crossencodeShortDesc,
		Long:  crossencodeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVarP(&cmder.topicsPath, "topics", "t", "", "Path to the topics XML file")
	cmd.Flags().StringVarP(&cmder.outPath, "out", "o", "run.crossenc", "Output run file")
	cmd.Flags().StringVar(&cmder.name, "name", "argrank-crossenc", "Run name")
	cmd.Flags().IntVar(&cmder.topK, "top-k", 0, "Documents rescored per topic (default from config)")
	_ = cmd.MarkFlagRequired("topics")

	return cmd
}

func (c *crossencodeCommander) run(ctx context.Context, out io.Writer, seedPath string) error {
	a := c.getApp()

	seed, err := run.ReadFile(seedPath)
	if err != nil {
		return err
	}
	topics, err := topic.ParseFile(c.topicsPath)
	if err != nil {
		return err
	}

	topK := a.cfg.Rerank.TopK
	if c.topK > 0 {
		topK = c.topK
	}
	svc, err := a.crossEncoderService(ceuc.Options{TopK: topK})
	if err != nil {
		return err
	}
	reranked, err := svc.Rerank(ctx, seed, topics)
	if err != nil {
		return fmt.Errorf("crossencode: %w", err)
	}

	if err := run.WriteFile(c.outPath, reranked, c.name); err != nil {
		return err
	}
	fmt.Fprintf(out, "reranked %d topics into %s\n", reranked.Len(), c.outPath)
	return nil
}
