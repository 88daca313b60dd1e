package watch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gnolang/dfq/internal/lang"
)

func setup(t *testing.T) (exprPath, tablePath string) {
	t.Helper()
	dir := t.TempDir()
	exprPath = filepath.Join(dir, "query.dfq")
	tablePath = filepath.Join(dir, "table.csv")
	require.NoError(t, os.WriteFile(exprPath, []byte(`("x" > "1");`), 0o644))
	require.NoError(t, os.WriteFile(tablePath, []byte("x\n1\n2\n3\n"), 0o644))
	return exprPath, tablePath
}

func next(t *testing.T, updates <-chan Update) Update {
	t.Helper()
	return waitFor(t, updates, func(Update) bool { return true })
}

// waitFor skips updates until one satisfies ok. A single save can produce
// more than one evaluation.
func waitFor(t *testing.T, updates <-chan Update, ok func(Update) bool) Update {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case up := <-updates:
			if ok(up) {
				return up
			}
		case <-timeout:
			t.Fatal("timed out waiting for an update")
			return Update{}
		}
	}
}

func TestWatcher(t *testing.T) {
	exprPath, tablePath := setup(t)

	updates := make(chan Update, 16)
	w, err := New(exprPath, tablePath, func(up Update) { updates <- up }, Options{
		Logger:   zaptest.NewLogger(t),
		Debounce: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.ErrorIs(t, w.Start(), ErrAlreadyWatching)

	up := next(t, updates)
	require.NoError(t, up.Err)
	assert.Equal(t, []bool{false, true, true}, up.Result.Mask)

	t.Run("ExpressionChanged", func(t *testing.T) {
		require.NoError(t, os.WriteFile(exprPath, []byte(`("x" - "1") * "2";`), 0o644))
		up := waitFor(t, updates, func(up Update) bool { return up.Result != nil && up.Result.Kind == lang.KindCalc })
		require.NoError(t, up.Err)
		assert.Equal(t, lang.KindCalc, up.Result.Kind)
		assert.Equal(t, []float64{0, 2, 4}, up.Result.Values)
	})

	t.Run("TableChanged", func(t *testing.T) {
		require.NoError(t, os.WriteFile(tablePath, []byte("x\n10\n"), 0o644))
		up := waitFor(t, updates, func(up Update) bool { return up.Err == nil && len(up.Result.Values) == 1 })
		assert.Equal(t, []float64{18}, up.Result.Values)
	})

	t.Run("BrokenExpression", func(t *testing.T) {
		require.NoError(t, os.WriteFile(exprPath, []byte(`("x" > "1);`), 0o644))
		up := waitFor(t, updates, func(up Update) bool { return errors.Is(up.Err, lang.ErrUnbalancedQuote) })
		pos, ok := lang.Position(up.Err)
		require.True(t, ok)
		assert.Equal(t, 7, pos)
	})

	require.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Stop(), ErrNotWatching)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	exprPath, tablePath := setup(t)

	updates := make(chan Update, 16)
	w, err := New(exprPath, tablePath, func(up Update) { updates <- up }, Options{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	next(t, updates)

	other := filepath.Join(filepath.Dir(exprPath), "other.txt")
	require.NoError(t, os.WriteFile(other, []byte("noise"), 0o644))

	select {
	case up := <-updates:
		t.Fatalf("unexpected update: %+v", up)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestEvaluate_MissingTable(t *testing.T) {
	exprPath, _ := setup(t)
	w, err := New(exprPath, filepath.Join(t.TempDir(), "missing.csv"), nil, Options{})
	require.NoError(t, err)

	up := w.Evaluate()
	assert.ErrorIs(t, up.Err, os.ErrNotExist)
	assert.Equal(t, `("x" > "1");`, up.Expr)
}
