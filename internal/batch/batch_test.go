package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnolang/dfq/internal/frame"
	"github.com/gnolang/dfq/internal/lang"
)

type mockEvaluator struct {
	mock.Mock
}

func (m *mockEvaluator) Run(expr string, tbl lang.Table) (*lang.Result, error) {
	args := m.Called(expr, tbl)
	res, _ := args.Get(0).(*lang.Result)
	return res, args.Error(1)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.dfq":        `"x" > "1";`,
		"nested/b.DFQ": `"x" < "1";`,
		"notes.txt":    "ignored",
	})
	explicit := filepath.Join(dir, "notes.txt")

	files, err := Collect([]string{dir, explicit})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.dfq"),
		filepath.Join(dir, "nested", "b.DFQ"),
		explicit,
	}, files)

	_, err = Collect([]string{filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_WithMockEvaluator(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.dfq": "second",
		"a.dfq": "first",
	})

	want := &lang.Result{Kind: lang.KindCalc, Scalar: 1, IsScalar: true}
	boom := errors.New("boom")
	ev := new(mockEvaluator)
	ev.On("Run", "first", nil).Return(want, nil)
	ev.On("Run", "second", nil).Return(nil, boom)

	outcomes, err := Run(context.Background(), zap.NewNop(), nil, []string{dir}, Options{
		Workers:      1,
		NewEvaluator: func() Evaluator { return ev },
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Equal(t, filepath.Join(dir, "a.dfq"), outcomes[0].Path)
	assert.Equal(t, "first", outcomes[0].Expr)
	assert.Same(t, want, outcomes[0].Result)
	assert.NoError(t, outcomes[0].Err)

	assert.Equal(t, filepath.Join(dir, "b.dfq"), outcomes[1].Path)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, 1, Failed(outcomes))
	ev.AssertExpectations(t)
}

func TestRun_Parsers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	files := map[string]string{
		"bad.dfq":   `("missing" > "1");`,
		"calc.dfq":  `("x" + "1") * "2";`,
		"small.dfq": `("x" < "3");`,
	}
	for i := 0; i < 20; i++ {
		files[filepath.Join("more", string(rune('a'+i))+".dfq")] = `("x" >= "2") and ("x" != "3");`
	}
	writeFiles(t, dir, files)

	tbl, err := frame.NewBuilder(nil).Float64("x", 1, 2, 3).Build()
	require.NoError(t, err)
	defer tbl.Release()

	var progress bytes.Buffer
	outcomes, err := Run(context.Background(), nil, tbl, []string{dir}, Options{
		Workers:       4,
		ParserOptions: []lang.Option{lang.WithLegacyPlus(true)},
		Progress:      &progress,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, len(files))
	assert.Equal(t, 1, Failed(outcomes))
	assert.NotEmpty(t, progress.String())

	byName := make(map[string]Outcome)
	for _, out := range outcomes {
		rel, err := filepath.Rel(dir, out.Path)
		require.NoError(t, err)
		byName[rel] = out
	}

	assert.ErrorIs(t, byName["bad.dfq"].Err, lang.ErrUnknownColumn)
	assert.Equal(t, []float64{2, 4, 6}, byName["calc.dfq"].Result.Values)
	assert.Equal(t, []bool{true, true, false}, byName["small.dfq"].Result.Mask)
	for name, out := range byName {
		if filepath.Dir(name) == "more" {
			require.NoError(t, out.Err, name)
			assert.Equal(t, []bool{false, true, false}, out.Result.Mask, name)
		}
	}

	for i := 1; i < len(outcomes); i++ {
		assert.Less(t, outcomes[i-1].Path, outcomes[i].Path)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.dfq": `"1" + "1";`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, zap.NewNop(), nil, []string{dir}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ReadError(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.dfq": "ignored"})

	readErr := errors.New("unreadable")
	outcomes, err := Run(context.Background(), zap.NewNop(), nil, []string{dir}, Options{
		Read: func(string) (string, error) { return "", readErr },
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes[0].Err, readErr)
}
