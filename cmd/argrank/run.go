package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
	ceuc "github.com/kailas-cloud/argrank/internal/usecase/crossencoder"
	"github.com/kailas-cloud/argrank/internal/usecase/fusion"
)

const runLongDesc string = `Run the full retrieval pipeline over a topics file.

Stages, each written as run.<stage> under the output directory:
  bm25       lexical retrieval of every topic title
  semantic   dense retrieval, best passage per document
  fused      bm25 + alpha * semantic
  prf        pseudo-relevance feedback over the fused run
  crossenc   cross-encoder rerank of the prf run (with --crossencode)

Examples:
  argrank run --topics topics.xml --out out/runs
  argrank run --topics topics.xml --out out/runs --alpha 0.5 --crossencode`

const runShortDesc string = "Run retrieval, fusion and reranking end to end"

type runCommander struct {
	getApp func() *app

	topicsPath  string
	outDir      string
	prefix      string
	alpha       float64
	alphaSet    bool
	crossencode bool
}

func newRunCmd(getApp func() *app) *cobra.Command {
	cmder := &runCommander{getApp: getApp}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.alphaSet = cmd.Flags().Changed("alpha")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.topicsPath, "topics", "t", "", "Path to the topics XML file")
	cmd.Flags().StringVarP(&cmder.outDir, "out", "o", "out/runs", "Directory for the run files")
	cmd.Flags().StringVar(&cmder.prefix, "prefix", "argrank", "Run name prefix")
	cmd.Flags().Float64Var(&cmder.alpha, "alpha", 0, "Weight of the semantic run in fusion (default from config)")
	cmd.Flags().BoolVar(&cmder.crossencode, "crossencode", false, "Add a cross-encoder rerank stage")
	_ = cmd.MarkFlagRequired("topics")

	return cmd
}

func (c *runCommander) run(ctx context.Context, out io.Writer) error {
	a := c.getApp()

	topics, err := topic.ParseFile(c.topicsPath)
	if err != nil {
		return err
	}
	a.logger.Info("Topics loaded", zap.Int("topics", topics.Len()))

	retrieval, err := a.retrievalService(ctx)
	if err != nil {
		return err
	}

	bm25, err := retrieval.LexicalRun(ctx, topics)
	if err != nil {
		return fmt.Errorf("bm25: %w", err)
	}
	if err := c.write(out, "bm25", bm25); err != nil {
		return err
	}

	semantic, err := retrieval.SemanticRun(ctx, topics)
	if err != nil {
		return fmt.Errorf("semantic: %w", err)
	}
	if err := c.write(out, "semantic", semantic); err != nil {
		return err
	}

	alpha := a.cfg.Fusion.Alpha
	if c.alphaSet {
		alpha = c.alpha
	}
	fused := fusion.Interpolate(bm25, semantic, alpha)
	if err := c.write(out, "fused", fused); err != nil {
		return err
	}

	prfSvc, err := a.prfService(ctx, a.prfOptions())
	if err != nil {
		return err
	}
	reranked, err := prfSvc.Rerank(ctx, fused, topics)
	if err != nil {
		return fmt.Errorf("prf: %w", err)
	}
	if err := c.write(out, "prf", reranked); err != nil {
		return err
	}

	if !c.crossencode {
		return nil
	}

	ceSvc, err := a.crossEncoderService(ceuc.Options{TopK: a.cfg.Rerank.TopK})
	if err != nil {
		return err
	}
	crossenc, err := ceSvc.Rerank(ctx, reranked, topics)
	if err != nil {
		return fmt.Errorf("crossencode: %w", err)
	}
	return c.write(out, "crossenc", crossenc)
}

func (c *runCommander) write(out io.Writer, stage string, r run.Run) error {
	path := filepath.Join(c.outDir, "run."+stage)
	if err := run.WriteFile(path, r, c.prefix+"-"+stage); err != nil {
		return fmt.Errorf("write %s: %w", stage, err)
	}
	fmt.Fprintf(out, "%-9s %4d topics  %s\n", stage, r.Len(), path)
	return nil
}
