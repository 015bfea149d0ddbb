// Copyright 2024 The Img2pdf Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/UNO-SOFT/filecache"
	"github.com/google/renameio/v2"
)

var (
	// ErrOutputDirMissing is returned when the output directory does not exist.
	ErrOutputDirMissing = errors.New("output directory missing")
	// ErrBusy is returned when a run is started while another is running.
	ErrBusy = errors.New("a conversion is already running")
)

// State of a Worker.
type State int32

const (
	StateIdle = State(iota)
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Job is the configuration of one run. It is not modified by the worker.
type Job struct {
	Images    []string
	OutputDir string
	GroupSize int
}

// Result is the terminal outcome of a run.
type Result struct {
	RunID   string
	Message string
	// Err is the cause of a failed run.
	Err error
	// Outputs are the written PDFs, in plan order.
	Outputs []string
	// Errors are the failures of the skipped groups of a completed run.
	Errors []error
	OK     bool
}

// Worker converts the groups of a plan to PDF files, one run at a time.
type Worker struct {
	Encoder Encoder
	// Engine is part of the cache key.
	Engine string
	// Cache is optional.
	Cache *filecache.Cache

	state atomic.Int32
}

// NewWorker returns a Worker using the named engine.
func NewWorker(engine string, cache *filecache.Cache) (*Worker, error) {
	enc, err := GetEncoder(engine)
	if err != nil {
		return nil, err
	}
	if engine == "" {
		engine = EnginePdfCPU
	}
	return &Worker{Encoder: enc, Engine: engine, Cache: cache}, nil
}

// State returns the state of the last (or current) run.
func (w *Worker) State() State { return State(w.state.Load()) }

func (w *Worker) begin() bool {
	for {
		s := w.state.Load()
		if State(s) == StateRunning {
			return false
		}
		if w.state.CompareAndSwap(s, int32(StateRunning)) {
			return true
		}
	}
}

// Run is a started conversion.
type Run struct {
	ID     string
	events <-chan Event
	done   chan struct{}
	result Result
}

// Events returns the status events in the order they were produced.
// The channel is closed after the last event; it must be drained.
func (r *Run) Events() <-chan Event { return r.events }

// Done is closed when the result is available.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait waits for the end of the run and returns its result.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Start starts converting the job in the background.
// It returns ErrBusy if a run is already active.
func (w *Worker) Start(ctx context.Context, job Job) (*Run, error) {
	if !w.begin() {
		return nil, ErrBusy
	}
	ctx = SetRunID(ctx, "")
	pump := newEventPump()
	run := &Run{ID: GetRunID(ctx), events: pump.out, done: make(chan struct{})}
	go func() {
		defer close(run.done)
		run.result = w.run(ctx, job, pump.Emit)
		pump.Close()
	}()
	return run, nil
}

// Run converts the job synchronously, calling emit (if not nil) for each event.
func (w *Worker) Run(ctx context.Context, job Job, emit func(Event)) Result {
	if !w.begin() {
		return Result{Message: ErrBusy.Error(), Err: ErrBusy}
	}
	return w.run(SetRunID(ctx, ""), job, emit)
}

func (w *Worker) run(ctx context.Context, job Job, emit func(Event)) (res Result) {
	if emit == nil {
		emit = func(Event) {}
	}
	res.RunID = GetRunID(ctx)
	logger := RunLogger(ctx)
	start := time.Now()
	defer func() {
		if res.OK {
			w.state.Store(int32(StateCompleted))
			mRunsCompleted.Inc()
			logger.Info("completed", "outputs", len(res.Outputs), "failed", len(res.Errors), "dur", time.Since(start).String())
		} else {
			w.state.Store(int32(StateFailed))
			mRunsFailed.Inc()
			logger.Error("failed", "error", res.Err, "dur", time.Since(start).String())
		}
	}()
	fail := func(err error) Result {
		res.OK, res.Err, res.Message = false, err, err.Error()
		return res
	}

	emit(Message{Text: "starting conversion"})
	plan, err := NewPlan(job.Images, job.GroupSize)
	if err != nil {
		return fail(err)
	}
	if !isDir(job.OutputDir) {
		return fail(fmt.Errorf("%w: %q", ErrOutputDirMissing, job.OutputDir))
	}
	emit(Message{Text: fmt.Sprintf("found %d valid image files", plan.Images())})
	logger.Info("start", "images", plan.Images(), "groups", plan.Len(), "groupSize", plan.GroupSize, "outputDir", job.OutputDir)
	mImages.Add(plan.Images())

	total := float64(plan.Len())
	for i, group := range plan.Groups {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		name := plan.OutputName(i)
		destfn := filepath.Join(job.OutputDir, name)
		if err := w.convertGroup(ctx, logger, group, destfn); err != nil {
			mGroupsFailed.Inc()
			logger.Warn("convert", "group", i+1, "dest", destfn, "error", err)
			if plan.IsSingleMerge() {
				return fail(fmt.Errorf("merge into %s failed: %w", name, err))
			}
			if plan.GroupSize == 1 {
				emit(Message{Text: fmt.Sprintf("conversion failed %s: %v", group[0], err)})
			} else {
				emit(Message{Text: fmt.Sprintf("conversion of group %d failed: %v", i+1, err)})
			}
			res.Errors = append(res.Errors, err)
			continue
		}
		mGroupsOK.Inc()
		res.Outputs = append(res.Outputs, destfn)
		emit(Progress{Percent: int(math.Round(float64(i+1) / total * 100))})
		emit(Message{Text: "written: " + name})
	}
	res.OK, res.Message = true, "conversion complete"
	return res
}

// convertGroup encodes the images into destfn, atomically.
// On error destfn is left untouched.
func (w *Worker) convertGroup(ctx context.Context, logger *slog.Logger, images []string, destfn string) error {
	if err := CheckImages(images); err != nil {
		return &EncodingError{Images: images, Err: err}
	}
	var key filecache.ActionID
	useCache := w.Cache != nil
	if useCache {
		var err error
		if key, err = cacheKey(w.Engine, images); err != nil {
			logger.Warn("cache key", "images", images, "error", err)
			useCache = false
		} else if fromCache(w.Cache, logger, key, destfn) {
			mCacheHits.Inc()
			return nil
		}
	}

	pf, err := renameio.NewPendingFile(destfn, renameio.WithPermissions(0644))
	if err != nil {
		return &WriteError{Path: destfn, Err: err}
	}
	defer func() { _ = pf.Cleanup() }()
	cew := &countErrWriter{w: pf}
	start := time.Now()
	err = w.Encoder.Encode(ctx, cew, images)
	mEncodeDur.UpdateDuration(start)
	if cew.err != nil {
		return &WriteError{Path: destfn, Err: cew.err}
	}
	if err != nil {
		return &EncodingError{Images: images, Err: err}
	}
	if cew.n == 0 {
		return &EncodingError{Images: images, Err: errors.New("empty output")}
	}
	if err = pf.CloseAtomicallyReplace(); err != nil {
		return &WriteError{Path: destfn, Err: err}
	}
	logger.Debug("written", "dest", destfn, "size", cew.n, "images", len(images))
	if useCache {
		toCache(w.Cache, logger, key, destfn)
	}
	return nil
}

// countErrWriter records the number of bytes written and the first write error.
type countErrWriter struct {
	w   io.Writer
	err error
	n   int64
}

func (cew *countErrWriter) Write(p []byte) (int, error) {
	if cew.err != nil {
		return 0, cew.err
	}
	n, err := cew.w.Write(p)
	cew.n += int64(n)
	if err != nil {
		cew.err = err
	}
	return n, err
}
