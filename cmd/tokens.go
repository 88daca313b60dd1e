package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gnolang/dfq/internal/lang"
	"github.com/gnolang/dfq/internal/render"
)

type tokenList []lang.Token

func (l *tokenList) AppendToken(tok lang.Token) error {
	*l = append(*l, tok)
	return nil
}

func newTokensCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens EXPR",
		Short: "Print the tokens of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := args[0]
			tokens, err := tokenize(expr, ro.parserOptions())
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), render.Diagnostic("", expr, err))
				return errReported
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "POS\tKIND\tOP\tTEXT")
			for _, tok := range tokens {
				op := ""
				if tok.Op != lang.OpNone {
					op = tok.Op.String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%q\n", tok.Pos, tok.Kind, op, tok.Text)
			}
			return tw.Flush()
		},
	}
}

func tokenize(expr string, opts []lang.Option) ([]lang.Token, error) {
	var tokens tokenList
	w := lang.NewWorker(&tokens, opts...)
	for _, r := range expr {
		if err := w.Process(string(r)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return tokens, nil
}
