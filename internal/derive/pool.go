package derive

import (
	"context"
	"errors"
	"sync"
)

// Deriver produces one derivative. *Engine implements it.
type Deriver interface {
	Derive(ctx context.Context, job Job) (Image, error)
}

// DeriveAll derives jobs on at most workers goroutines and returns images in
// job order. On failure, jobs not yet started are skipped and the error of
// the earliest failing job is returned; no partial result is returned.
func DeriveAll(ctx context.Context, d Deriver, jobs []Job, workers int) ([]Image, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	images := make([]Image, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, max(workers, 1))
	var wg sync.WaitGroup

dispatch:
	for i, job := range jobs {
		select {
		case sem <- struct{}{}:
		case <-runCtx.Done():
			break dispatch
		}
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()
			if runCtx.Err() != nil {
				return
			}
			img, err := d.Derive(runCtx, job)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			images[i] = img
		}(i, job)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		// Jobs interrupted by a sibling failure report context.Canceled;
		// prefer the failure that caused it.
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		return nil, err
	}
	if canceled != nil {
		return nil, canceled
	}
	return images, nil
}
