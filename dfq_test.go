package dfq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/lang"
)

func TestEval(t *testing.T) {
	t.Parallel()
	tbl, err := frame.NewBuilder(nil).
		Float64("price", 5, 12, 30).
		String("region", "emea", "emea", "apac").
		Build()
	require.NoError(t, err)
	defer tbl.Release()

	res, err := Eval(`("region" == "emea") and ("price" > "10");`, tbl)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.Rows())

	res, err = Eval(`("price" + "1") * "2";`, tbl, lang.WithLegacyPlus(true))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 24, 60}, res.Values)
}

func TestEvalFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exprPath := filepath.Join(dir, "q.dfq")
	tablePath := filepath.Join(dir, "people.json")
	require.NoError(t, os.WriteFile(exprPath, []byte("# adults\n(\"age\" >= \"18\");\n"), 0o644))
	require.NoError(t, os.WriteFile(tablePath, []byte(`[{"age": 12}, {"age": 40}]`), 0o644))

	res, err := EvalFile(exprPath, tablePath)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, res.Mask)

	_, err = EvalFile(filepath.Join(dir, "missing.dfq"), tablePath)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = EvalFile(exprPath, filepath.Join(dir, "people.xml"))
	assert.Error(t, err)
}

func TestEvalFile_CSVLaterRowsKeepTheirValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	exprPath := filepath.Join(dir, "q.dfq")
	tablePath := filepath.Join(dir, "x.csv")
	require.NoError(t, os.WriteFile(exprPath, []byte(`("x" > "2");`), 0o644))
	require.NoError(t, os.WriteFile(tablePath, []byte("x\n1\n2.5\n"), 0o644))

	res, err := EvalFile(exprPath, tablePath)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, res.Mask)
}

func TestReadExpression(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain", `("x" > "1");`, `("x" > "1");`},
		{"trailing newline", "(\"x\" > \"1\");\n\n", `("x" > "1");`},
		{"comment lines are blanked", "# header\n(\"x\" > \"1\")\n  # note\nand (\"y\" == \"a\");", "\n(\"x\" > \"1\")\n\nand (\"y\" == \"a\");"},
		{"crlf", "(\"x\" > \"1\")\r\n;\r\n", "(\"x\" > \"1\")\n;"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "e.dfq")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := ReadExpression(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
