// Package worker provides a bounded pool of tile downloads.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/MeKo-Tech/tilearchive/internal/tile"
)

// Fetcher is the interface for tile downloads.
// This matches the signature of fetch.HTTPFetcher.FetchBytes.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Task represents a single tile download.
type Task struct {
	Tile tile.Tile
	URL  string
}

// NewTask resolves the download URL of t. Each call draws a fresh
// {switch:...} alternative.
func NewTask(t tile.Tile) Task {
	return Task{Tile: t, URL: t.URL()}
}

// Result represents the outcome of a download task.
type Result struct {
	Task    Task
	Data    []byte
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(Result)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Fetcher    Fetcher
	OnProgress ProgressFunc
}

// Pool runs downloads in parallel.
type Pool struct {
	workers    int
	fetcher    Fetcher
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		fetcher:    cfg.Fetcher,
		onProgress: cfg.OnProgress,
	}
}

// Run executes all tasks and returns one result per task, in completion
// order. Once ctx is cancelled no new download starts; tasks not yet started
// get ctx.Err() as their result and in-flight downloads run to completion.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for range min(p.workers, len(tasks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)
			if p.onProgress != nil {
				p.onProgress(result)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		// In-flight downloads are not interrupted by ctx.
		start := time.Now()
		data, err := p.fetcher.FetchBytes(context.WithoutCancel(ctx), task.URL)
		results <- Result{
			Task:    task,
			Data:    data,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
