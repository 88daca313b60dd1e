package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/dfq"
	"github.com/gnolang/dfq/internal/batch"
	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/render"
)

var fileStyle = color.New(color.FgCyan, color.Bold)

func newBatchCmd(ro *rootOptions) *cobra.Command {
	var (
		tablePath  string
		jsonOut    bool
		outPath    string
		noProgress bool
		workers    int
	)

	batchCmd := &cobra.Command{
		Use:   "batch --table FILE PATHS...",
		Short: "Evaluate every .dfq file under the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := frame.Load(tablePath, nil)
			if err != nil {
				return fmt.Errorf("error loading table: %w", err)
			}
			defer tbl.Release()

			ctx, cancel := ro.context(cmd)
			defer cancel()

			opts := batch.Options{
				Workers:       workers,
				ParserOptions: ro.parserOptions(),
				Read:          dfq.ReadExpression,
			}
			if !noProgress {
				opts.Progress = cmd.ErrOrStderr()
			}
			outcomes, err := batch.Run(ctx, ro.logger, tbl, args, opts)
			if err != nil {
				return err
			}
			if !noProgress {
				fmt.Fprintln(cmd.ErrOrStderr())
			}

			w, closeOutput, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			if ro.wantJSON(jsonOut) {
				err = printOutcomesJSON(w, outcomes)
			} else {
				err = printOutcomesText(w, cmd.ErrOrStderr(), outcomes, tbl)
			}
			if cerr := closeOutput(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			if failed := batch.Failed(outcomes); failed > 0 {
				ro.logger.Error("Some expressions failed",
					zap.Int("failed", failed),
					zap.Int("total", len(outcomes)))
				return fmt.Errorf("%d of %d expressions failed: %w", failed, len(outcomes), errReported)
			}
			return nil
		},
	}

	batchCmd.Flags().StringVarP(&tablePath, "table", "t", "", "Table file (.csv or .json)")
	batchCmd.Flags().BoolVar(&jsonOut, "json", false, "Output one JSON object per expression")
	batchCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path")
	batchCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not show a progress bar")
	batchCmd.Flags().IntVar(&workers, "workers", 0, "Number of concurrent evaluations (default: number of CPUs)")
	_ = batchCmd.MarkFlagRequired("table")
	return batchCmd
}

func printOutcomesText(w, errw io.Writer, outcomes []batch.Outcome, tbl *frame.Frame) error {
	for _, out := range outcomes {
		if out.Err != nil {
			fmt.Fprint(errw, render.Diagnostic(out.Path, out.Expr, out.Err))
			continue
		}
		fmt.Fprintln(w, fileStyle.Sprint(out.Path))
		if err := render.Text(w, out.Result, tbl); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func printOutcomesJSON(w io.Writer, outcomes []batch.Outcome) error {
	for _, out := range outcomes {
		doc := map[string]any{"path": out.Path}
		if out.Err != nil {
			doc["error"] = out.Err.Error()
			doc["category"] = render.Category(out.Err)
		} else {
			doc["result"] = render.Document(out.Result)
		}
		if _, err := fmt.Fprintln(w, oj.JSON(doc, &oj.Options{Sort: true})); err != nil {
			return err
		}
	}
	return nil
}
