package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	snap2pdf "github.com/alnah/go-snap2pdf"
	"github.com/alnah/go-snap2pdf/internal/hints"
)

// captureJob is one source argument and its request.
type captureJob struct {
	Source  string
	Request snap2pdf.CaptureRequest
}

// CaptureResult holds the outcome of a single capture.
type CaptureResult struct {
	Source   string
	Location string
	Pages    int
	Warnings []snap2pdf.Warning
	Err      error
	Hint     string
	Duration time.Duration
}

// captureBatch runs jobs concurrently on the pool. Results keep job order.
func captureBatch(ctx context.Context, pool Pool, jobs []captureJob) []CaptureResult {
	if len(jobs) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(jobs))
	results := make([]CaptureResult, len(jobs))
	var wg sync.WaitGroup
	queue := make(chan int, len(jobs))

	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()

			c, err := pool.Acquire(ctx)
			if err != nil {
				for idx := range queue {
					results[idx] = CaptureResult{Source: jobs[idx].Source, Err: err}
				}
				return
			}
			defer pool.Release(c)

			for idx := range queue {
				if err := ctx.Err(); err != nil {
					results[idx] = CaptureResult{Source: jobs[idx].Source, Err: err}
					continue
				}
				results[idx] = captureOne(ctx, c, jobs[idx])
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

// captureOne runs a single job and returns its result.
func captureOne(ctx context.Context, c Capturer, job captureJob) CaptureResult {
	start := time.Now()
	result := CaptureResult{Source: job.Source}

	res, err := c.Capture(ctx, job.Request)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		result.Hint = hintFor(err, job.Request.Source.Selector)
		return result
	}

	result.Location = res.Artifact.Location
	result.Pages = res.Artifact.Pages
	result.Warnings = res.Warnings
	return result
}

// hintFor returns the actionable hint for a capture failure, if any.
func hintFor(err error, selector string) string {
	switch {
	case errors.Is(err, snap2pdf.ErrBrowserConnect):
		return hints.ForBrowserConnect()
	case errors.Is(err, snap2pdf.ErrPageLoad), errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, snap2pdf.ErrTainted):
		return hints.ForTainted(nil)
	case errors.Is(err, snap2pdf.ErrSaveFailed):
		return hints.ForOutputDirectory()
	case errors.Is(err, snap2pdf.ErrSourceUnavailable):
		return hints.ForSelectorNotFound(selector)
	}
	return ""
}

// ResultSummary holds the count of succeeded and failed captures.
type ResultSummary struct {
	Succeeded int
	Failed    int
	Warned    int
}

// countResults tallies the batch.
func countResults(results []CaptureResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		switch {
		case r.Err != nil:
			summary.Failed++
		case len(r.Warnings) > 0:
			summary.Succeeded++
			summary.Warned++
		default:
			summary.Succeeded++
		}
	}
	return summary
}

// printResults reports each capture and returns the number of failures.
// Failures and warnings go to errw, progress to out.
func printResults(results []CaptureResult, quiet, verbose bool, out, errw io.Writer) int {
	summary := countResults(results)

	for _, r := range results {
		label := sourceLabel(r.Source)
		if r.Err != nil {
			fmt.Fprintf(errw, "FAILED %s: %v%s\n", label, r.Err, r.Hint)
			continue
		}

		if quiet {
			continue
		}

		for _, w := range r.Warnings {
			hint := ""
			if w.Kind == snap2pdf.KindAssetTimeout {
				hint = hints.ForAssetTimeout()
			}
			fmt.Fprintf(errw, "warning: %s: %s%s\n", label, w, hint)
		}

		location := r.Location
		if location == stdinSource {
			location = "stdout"
		}
		if verbose {
			fmt.Fprintf(out, "%s -> %s (%d page(s), %v)\n", label, location, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(out, "Created %s\n", location)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(out, "\n%d succeeded (%d with warnings), %d failed\n", summary.Succeeded, summary.Warned, summary.Failed)
	}

	return summary.Failed
}

// batchError reports failed captures. It unwraps to the first failure so
// exitCodeFor classifies the batch by it.
type batchError struct {
	failed int
	total  int
	first  error
}

func (e *batchError) Error() string {
	return fmt.Sprintf("%d of %d capture(s) failed", e.failed, e.total)
}

func (e *batchError) Unwrap() error { return e.first }

// batchErr returns nil when nothing failed.
func batchErr(results []CaptureResult, failed int) error {
	if failed == 0 {
		return nil
	}
	e := &batchError{failed: failed, total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			e.first = r.Err
			break
		}
	}
	return e
}
