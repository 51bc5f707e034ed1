package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/mdq"
)

// Worker runs a compiled query over every file of a job.
type Worker struct {
	log *slog.Logger

	maxDepth           int
	pdftotext          bool
	maxConcurrentFiles int
}

func NewWorker(log *slog.Logger, maxDepth int, pdftotext bool, maxConcurrentFiles int) *Worker {
	if maxConcurrentFiles <= 0 {
		maxConcurrentFiles = 1
	}
	return &Worker{
		log:                log,
		maxDepth:           maxDepth,
		pdftotext:          pdftotext,
		maxConcurrentFiles: maxConcurrentFiles,
	}
}

// Process compiles the job's query once and runs it on each file with
// bounded concurrency. Per-file failures are recorded on the file result;
// the job fails outright only when the query or its options are invalid.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)
	job.SetStatus(StatusRunning)

	opts := mdq.Options{
		MaxDepth:  w.maxDepth,
		Pdftotext: w.pdftotext,
		Logger:    log,
	}
	if job.ListStyle != "" {
		style, err := mdq.ParseListStyle(job.ListStyle)
		if err != nil {
			log.Warn("invalid list style", "error", err)
			job.Fail(err)
			return
		}
		opts.ListStyle = style
	}
	fixedFormat := job.InputFormat != ""
	if fixedFormat {
		f, err := mdq.ParseInputFormat(job.InputFormat)
		if err != nil {
			log.Warn("invalid input format", "error", err)
			job.Fail(err)
			return
		}
		opts.InputFormat = f
	}

	q, err := mdq.Compile(job.Query, &opts)
	if err != nil {
		log.Warn("query compile failed", "error", err)
		job.Fail(err)
		return
	}

	files := job.Files()
	sem := make(chan struct{}, w.maxConcurrentFiles)
	var wg sync.WaitGroup
	for i, f := range files {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			defer func() { <-sem }()
			job.SetResult(i, w.runFile(ctx, log, q, opts, fixedFormat, f))
		}(i, f)
	}
	wg.Wait()

	status := job.Finish()
	log.Info("batch query finished", "files", len(files), "status", status)
}

func (w *Worker) runFile(ctx context.Context, log *slog.Logger, q *mdq.Query, opts mdq.Options, fixedFormat bool, f File) FileResult {
	res := FileResult{
		Filename:    f.Name,
		ContentHash: ContentHashHex(f.Data),
		Results:     []string{},
	}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	if !fixedFormat {
		format, err := mdq.FormatForFile(f.Name)
		if err != nil {
			log.Warn("unsupported file", "filename", f.Name, "error", err)
			res.Error = err.Error()
			return res
		}
		opts.InputFormat = format
	}
	res.Format = opts.InputFormat.String()
	opts.Logger = log.With("filename", f.Name)

	out, err := q.RunBytes(f.Data, &opts)
	if err != nil {
		log.Warn("query failed", "filename", f.Name, "error", err)
		res.Error = fmt.Sprintf("%s: %s", f.Name, err)
		return res
	}
	res.Results = out
	return res
}
