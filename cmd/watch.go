package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/dfq"
	"github.com/gnolang/dfq/internal/render"
	"github.com/gnolang/dfq/internal/watch"
)

func newWatchCmd(ro *rootOptions) *cobra.Command {
	var (
		tablePath string
		exprFile  string
		jsonOut   bool
	)

	watchCmd := &cobra.Command{
		Use:   "watch --table FILE --file F",
		Short: "Re-evaluate an expression file whenever it or the table changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, errw := cmd.OutOrStdout(), cmd.ErrOrStderr()
			onUpdate := func(up watch.Update) {
				if up.Err != nil {
					fmt.Fprint(errw, render.Diagnostic(exprFile, up.Expr, up.Err))
					return
				}
				var err error
				if ro.wantJSON(jsonOut) {
					err = render.JSON(out, up.Result)
				} else {
					err = render.Text(out, up.Result, up.Table)
				}
				if err != nil {
					ro.logger.Error("Error rendering result", zap.Error(err))
				}
			}

			w, err := watch.New(exprFile, tablePath, onUpdate, watch.Options{
				Logger:        ro.logger,
				ParserOptions: ro.parserOptions(),
				Read:          dfq.ReadExpression,
			})
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}

			ctx := cmd.Context()
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return w.Stop()
		},
	}

	watchCmd.Flags().StringVarP(&tablePath, "table", "t", "", "Table file (.csv or .json)")
	watchCmd.Flags().StringVarP(&exprFile, "file", "f", "", "File holding the expression")
	watchCmd.Flags().BoolVar(&jsonOut, "json", false, "Output results in JSON format")
	_ = watchCmd.MarkFlagRequired("table")
	_ = watchCmd.MarkFlagRequired("file")
	return watchCmd
}
