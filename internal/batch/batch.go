// Package batch evaluates many expression files against one table.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnolang/dfq/internal/lang"
)

// Ext is the extension of expression files picked up from directories.
const Ext = ".dfq"

// Evaluator runs one expression against a table. *lang.Parser satisfies it.
type Evaluator interface {
	Run(expr string, tbl lang.Table) (*lang.Result, error)
}

type Options struct {
	// Workers bounds the number of concurrent evaluations. Zero means
	// runtime.NumCPU().
	Workers int

	// NewEvaluator creates the evaluator owned by one worker. Defaults to
	// lang.New(ParserOptions...).
	NewEvaluator  func() Evaluator
	ParserOptions []lang.Option

	// Read loads an expression file. Defaults to os.ReadFile.
	Read func(path string) (string, error)

	// Progress, when non-nil, receives a progress bar.
	Progress io.Writer
}

// Outcome is the evaluation of one expression file.
type Outcome struct {
	Path   string
	Expr   string
	Result *lang.Result
	Err    error
}

// Collect expands paths into the list of expression files to evaluate.
// Directories are walked for files ending in Ext; files named explicitly
// are kept whatever their extension.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), Ext) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
	}
	return files, nil
}

// Run evaluates every expression file found under paths against tbl on a
// bounded pool of workers. Each worker owns its own Evaluator. Per-file
// failures are reported in the Outcome; the returned error is only set when
// the files cannot be collected or ctx is done. Outcomes are sorted by path.
func Run(ctx context.Context, logger *zap.Logger, tbl lang.Table, paths []string, opts Options) ([]Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := Collect(paths)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("evaluating"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	workers := opts.Workers
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan string)
	results := make(chan Outcome, len(files))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev := opts.NewEvaluator()
			for path := range jobs {
				out := evaluate(ev, opts.Read, tbl, path)
				if out.Err != nil {
					logger.Warn("Error evaluating file", zap.String("file", path), zap.Error(out.Err))
				}
				results <- out
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}

schedule:
	for _, path := range files {
		select {
		case <-ctx.Done():
			break schedule
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	outcomes := make([]Outcome, 0, len(files))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Path < outcomes[j].Path })
	return outcomes, nil
}

func evaluate(ev Evaluator, read func(string) (string, error), tbl lang.Table, path string) Outcome {
	out := Outcome{Path: path}
	expr, err := read(path)
	if err != nil {
		out.Err = err
		return out
	}
	out.Expr = expr
	out.Result, out.Err = ev.Run(expr, tbl)
	return out
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.NewEvaluator == nil {
		popts := o.ParserOptions
		o.NewEvaluator = func() Evaluator { return lang.New(popts...) }
	}
	if o.Read == nil {
		o.Read = func(path string) (string, error) {
			b, err := os.ReadFile(path)
			return string(b), err
		}
	}
	return o
}

// Failed counts the outcomes that carry an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, out := range outcomes {
		if out.Err != nil {
			n++
		}
	}
	return n
}
