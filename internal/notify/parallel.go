package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/masmgr/pushnotify/internal/classify"
)

// EngineFactory opens a fresh engine, with its own oracle session, for one
// reference change.
type EngineFactory func(ctx context.Context) (*Engine, error)

// ChangeError ties a processing failure to its reference change.
type ChangeError struct {
	Change classify.ReferenceChange
	Err    error
}

func (e *ChangeError) Error() string {
	return fmt.Sprintf("%s %s..%s: %v", e.Change.Name, e.Change.Old.Short(), e.Change.New.Short(), e.Err)
}

func (e *ChangeError) Unwrap() error {
	return e.Err
}

// ProcessAll processes independent reference changes in parallel with at most
// jobs engines at once. Results are returned in input order. The first failure
// cancels the changes still running or waiting; no results are returned and
// the error of the first change (in input order) that failed on its own is
// reported.
func ProcessAll(ctx context.Context, factory EngineFactory, changes []classify.ReferenceChange, jobs int) ([]*PushResult, error) {
	if jobs <= 0 {
		jobs = 1
	}
	results := make([]*PushResult, len(changes))
	errs := make([]error, len(changes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	sem := make(chan struct{}, jobs)
	for i, change := range changes {
		wg.Add(1)
		go func(idx int, ch classify.ReferenceChange) {
			defer wg.Done()
			sem <- struct{}{}        // acquire semaphore
			defer func() { <-sem }() // release semaphore

			if err := runCtx.Err(); err != nil {
				errs[idx] = err
				return
			}
			engine, err := factory(runCtx)
			if err == nil {
				results[idx], err = engine.Process(runCtx, ch)
			}
			if err != nil {
				errs[idx] = err
				cancel()
			}
		}(i, change)
	}
	wg.Wait()

	first := -1
	for i, err := range errs {
		if err == nil {
			continue
		}
		if first < 0 {
			first = i
		}
		// Skip changes stopped by another change's failure.
		if ctx.Err() == nil && errors.Is(err, context.Canceled) {
			continue
		}
		return nil, &ChangeError{Change: changes[i], Err: err}
	}
	if first >= 0 {
		return nil, &ChangeError{Change: changes[first], Err: errs[first]}
	}
	return results, nil
}
