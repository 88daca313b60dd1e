package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/dfq"
	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/lang"
	"github.com/gnolang/dfq/internal/render"
)

func newEvalCmd(ro *rootOptions) *cobra.Command {
	var (
		tablePath string
		expr      string
		exprFile  string
		jsonOut   bool
		outPath   string
	)

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate one expression against a table",
		Example: `  dfq eval --table sales.csv --expr '("region" == "emea") and ("price" > "10");'
  dfq eval --table sales.csv --file margin.dfq --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (expr == "") == (exprFile == "") {
				return errors.New("exactly one of --expr and --file is required")
			}
			source := ""
			if exprFile != "" {
				var err error
				if expr, err = dfq.ReadExpression(exprFile); err != nil {
					return fmt.Errorf("error reading expression: %w", err)
				}
				source = exprFile
			}

			tbl, err := frame.Load(tablePath, nil)
			if err != nil {
				return fmt.Errorf("error loading table: %w", err)
			}
			defer tbl.Release()

			ctx, cancel := ro.context(cmd)
			defer cancel()

			res, err := runWithTimeout(ctx, func() (*lang.Result, error) {
				return lang.New(ro.parserOptions()...).Run(expr, tbl)
			})
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				ro.logger.Debug("evaluation failed", zap.String("source", source), zap.Error(err))
				fmt.Fprint(cmd.ErrOrStderr(), render.Diagnostic(source, expr, err))
				return errReported
			}

			w, closeOutput, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			if ro.wantJSON(jsonOut) {
				err = render.JSON(w, res)
			} else {
				err = render.Text(w, res, tbl)
			}
			if cerr := closeOutput(); err == nil {
				err = cerr
			}
			return err
		},
	}

	evalCmd.Flags().StringVarP(&tablePath, "table", "t", "", "Table file (.csv or .json)")
	evalCmd.Flags().StringVarP(&expr, "expr", "e", "", "Expression to evaluate")
	evalCmd.Flags().StringVarP(&exprFile, "file", "f", "", "File holding the expression")
	evalCmd.Flags().BoolVar(&jsonOut, "json", false, "Output the result in JSON format")
	evalCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path")
	_ = evalCmd.MarkFlagRequired("table")
	return evalCmd
}
