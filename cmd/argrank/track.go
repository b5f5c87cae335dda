package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/argrank/internal/usecase/tracker"
)

const trackLongDesc string = `Replay a transcript through a rank tracker.

The transcript alternates timestamp and text lines. Each window is
ingested in order and one line is printed per window: index, timestamp,
DCG against the previous window and the top documents. The most
frequent documents over the replay are printed at the end.

Examples:
  argrank track debate.txt
  argrank track debate.txt --from 110:53 --limit 100 --weighting discount`

const trackShortDesc string = "Replay a transcript through a rank tracker"

type trackCommander struct {
	getApp func() *app

	from      string
	limit     int
	top       int
	frequent  int
	lookback  int
	weighting string
	keywords  []string
}

func newTrackCmd(getApp func() *app) *cobra.Command {
	cmder := &trackCommander{getApp: getApp}

	cmd := &cobra.Command{
		Use:   "track <transcript>",
		Short: trackShortDesc,
		Long:  trackLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.from, "from", "", "Start at the window with this timestamp")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Maximum windows to replay (0 = all)")
	cmd.Flags().IntVar(&cmder.top, "top", 5, "Top documents printed per window")
	cmd.Flags().IntVar(&cmder.frequent, "frequent", 20, "Most frequent documents printed at the end")
	cmd.Flags().IntVar(&cmder.lookback, "lookback", 0, "Windows searched per ingest (default from config)")
	cmd.Flags().StringVar(&cmder.weighting, "weighting", "", "Window weighting: uniform or discount (default from config)")
	cmd.Flags().StringSliceVar(&cmder.keywords, "keywords", nil, "Keyword groups to look up after the replay")

	return cmd
}

func (c *trackCommander) run(ctx context.Context, out io.Writer, transcriptPath string) error {
	a := c.getApp()

	windows, err := tracker.ParseTranscriptFile(transcriptPath)
	if err != nil {
		return err
	}
	windows, err = c.slice(windows)
	if err != nil {
		return err
	}

	opts, err := a.trackerOptions()
	if err != nil {
		return err
	}
	if c.lookback > 0 {
		opts.Lookback = c.lookback
	}
	if c.weighting != "" {
		if opts.Weighting, err = tracker.ParseWeighting(c.weighting); err != nil {
			return err
		}
	}

	searcher, err := a.lexicalRepo(ctx)
	if err != nil {
		return err
	}
	t := tracker.New(searcher, opts, a.logger)

	err = t.Replay(ctx, windows, func(idx int, w tracker.Window) {
		e, err := t.Entry(idx)
		if err != nil {
			return
		}
		top := e.Above(c.top)
		fmt.Fprintf(out, "%4d  %-8s dcg=%7.3f  %s\n", idx, w.Timestamp, e.DCG(), strings.Join(top, " "))
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	if t.Len() > 0 {
		docs, err := t.TopFrequent(0, t.Len(), c.frequent)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nmost frequent over %d windows:\n", t.Len())
		for _, d := range docs {
			fmt.Fprintf(out, "  %s\n", d)
		}
	}

	if len(c.keywords) > 0 {
		hits, err := t.FindByKeyword(ctx, c.keywords, tracker.DefaultKeywordTopN)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "\nkeyword lookups:")
		for _, h := range hits {
			fmt.Fprintf(out, "  %-30s %s\n", h.Keywords, strings.Join(h.DocIDs, " "))
		}
	}
	return nil
}

// slice applies --from and --limit.
func (c *trackCommander) slice(windows []tracker.Window) ([]tracker.Window, error) {
	if c.from != "" {
		start := -1
		for i, w := range windows {
			if w.Timestamp == c.from {
				start = i
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("timestamp %q not in transcript", c.from)
		}
		windows = windows[start:]
	}
	if c.limit > 0 && len(windows) > c.limit {
		windows = windows[:c.limit]
	}
	return windows, nil
}
