// Package pipeline implements the pipeline executor: importers run in
// parallel and their effects are merged, manipulators run in order, and
// exporters run in parallel over the frozen result. The parallel fan-out
// phases are built from goroutines, a bounded semaphore, and sync.WaitGroup
// rather than an errgroup dependency, a worker-pool idiom used throughout
// this codebase for bounded concurrent fan-out.
package pipeline

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/graph"
	"github.com/orneryd/corpusgraph/internal/progress"
	"github.com/orneryd/corpusgraph/internal/stage"
	"github.com/orneryd/corpusgraph/internal/stageid"
	"github.com/orneryd/corpusgraph/internal/telemetry"
	"github.com/orneryd/corpusgraph/internal/updatelog"
	"github.com/orneryd/corpusgraph/pkg/pool"
)

// Executor runs one workflow: a declared list of importers, manipulators,
// and exporters, in a fixed phase order.
type Executor struct {
	Importers    []stage.Importer
	Manipulators []stage.Manipulator
	Exporters    []stage.Exporter

	// WorkflowDir is passed to every manipulator (e.g. for manipulators that
	// resolve relative paths against the workflow file's own directory).
	WorkflowDir string

	// StrictApply, if true, makes a precondition failure during fan-in
	// apply a hard UpdateGraphError instead of a warning.
	StrictApply bool

	// MaxImportWorkers / MaxExportWorkers bound the fan-out worker pools.
	// 0 means GOMAXPROCS, read from CORPUSGRAPH_MAX_IMPORT_WORKERS /
	// CORPUSGRAPH_MAX_EXPORT_WORKERS when the Executor is built via New.
	MaxImportWorkers int
	MaxExportWorkers int

	// SpillThreshold and SpillDir configure the update log each importer
	// produces; see internal/updatelog.Options. SpillThreshold <= 0 leaves
	// every importer's log purely in memory.
	SpillThreshold int
	SpillDir       string
}

// New builds an Executor with worker-pool sizes read from the environment.
func New(importers []stage.Importer, manipulators []stage.Manipulator, exporters []stage.Exporter, workflowDir string) *Executor {
	return &Executor{
		Importers:        importers,
		Manipulators:     manipulators,
		Exporters:        exporters,
		WorkflowDir:      workflowDir,
		MaxImportWorkers: envWorkerCount("CORPUSGRAPH_MAX_IMPORT_WORKERS"),
		MaxExportWorkers: envWorkerCount("CORPUSGRAPH_MAX_EXPORT_WORKERS"),
	}
}

func envWorkerCount(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.GOMAXPROCS(0)
}

// Run executes the full workflow, returning the finished graph on success.
func (e *Executor) Run(ctx context.Context, sink progress.Sender) (*graph.Graph, error) {
	e.plan(sink)

	logs, err := e.runImporters(ctx, sink)
	if err != nil {
		sink.Send(progress.NewFailed(err))
		return nil, err
	}

	sink.Send(progress.NewInfo("Applying importer updates ..."))
	g, err := e.fanIn(logs, sink)
	if err != nil {
		sink.Send(progress.NewFailed(err))
		return nil, err
	}

	if err := e.runManipulators(ctx, g, sink); err != nil {
		sink.Send(progress.NewFailed(err))
		return nil, err
	}

	if err := e.runExporters(ctx, g, sink); err != nil {
		sink.Send(progress.NewFailed(err))
		return nil, err
	}

	return g, nil
}

func (e *Executor) plan(sink progress.Sender) {
	steps := make([]stageid.ID, 0, len(e.Importers)+len(e.Manipulators)+len(e.Exporters))
	for _, i := range e.Importers {
		steps = append(steps, i.StepID())
	}
	for _, m := range e.Manipulators {
		steps = append(steps, m.StepID())
	}
	for _, x := range e.Exporters {
		steps = append(steps, x.StepID())
	}
	sink.Send(progress.NewStepsCreated(steps))
}

// runImporters spawns every importer on a bounded worker pool. If any
// importer fails, the shared context is cancelled so workers not yet
// started skip their run; workers already in flight finish normally.
func (e *Executor) runImporters(ctx context.Context, sink progress.Sender) ([]updatelog.Log, error) {
	n := len(e.Importers)
	logs := make([]updatelog.Log, n)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, workerCount(e.MaxImportWorkers))
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for idx, imp := range e.Importers {
		select {
		case <-ctx.Done():
			continue
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, imp stage.Importer) {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			default:
			}

			path := imp.StepID().Path
			spanCtx, end := telemetry.StartStage(ctx, "import", path)
			log, err := imp.Import(spanCtx, path, sink)
			end()
			if err != nil {
				wrapped := &corpuserr.ImportError{
					Reason:   err.Error(),
					Importer: imp.ModuleName(),
					Path:     path,
					Err:      err,
				}
				once.Do(func() {
					firstErr = wrapped
					cancel()
				})
				return
			}
			logs[idx] = e.applySpillPolicy(log)
			sink.Send(progress.NewStepDone(imp.StepID()))
		}(idx, imp)
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return logs, nil
}

// applySpillPolicy re-homes an importer's freshly returned log into a
// threshold-aware disk-spilling one when e.SpillThreshold is configured.
// Importers themselves always build the simplest possible log
// (updatelog.NewMemory); the executor, not each importer, is the one place
// that knows the configured threshold, so it re-appends every already
// imported entry into a updatelog.New(Options{...}) log and lets that log's
// own spill trigger fire if the entry count warrants it.
func (e *Executor) applySpillPolicy(log updatelog.Log) updatelog.Log {
	if log == nil || e.SpillThreshold <= 0 {
		return log
	}
	spilling := updatelog.New(updatelog.Options{SpillThreshold: e.SpillThreshold, SpillDir: e.SpillDir})
	next := log.Iterate()
	for {
		entry, ok := next()
		if !ok {
			break
		}
		spilling.Append(entry.Event)
	}
	log.Close()
	return spilling
}

// fanIn concatenates importer logs in declaration order into one super-log
// and applies it once to a freshly created graph. Declaration order, not
// completion order, is part of the contract: it is what makes two workflows
// with identical configuration produce byte-identical graphs.
func (e *Executor) fanIn(logs []updatelog.Log, sink progress.Sender) (*graph.Graph, error) {
	super := updatelog.NewMemory()
	batch := pool.GetEventBatch()
	defer pool.PutEventBatch(batch)
	for _, log := range logs {
		if log == nil {
			continue
		}
		batch = batch[:0]
		next := log.Iterate()
		for {
			entry, ok := next()
			if !ok {
				break
			}
			batch = append(batch, entry.Event)
		}
		log.Close()
		for _, ev := range batch {
			super.Append(ev)
		}
	}

	g := graph.New()
	if err := g.Apply(super, sink, e.StrictApply); err != nil {
		return nil, err
	}
	return g, nil
}

// runManipulators runs every manipulator in declared order against the
// mutable graph, stopping fast at the first error.
func (e *Executor) runManipulators(ctx context.Context, g *graph.Graph, sink progress.Sender) error {
	for _, m := range e.Manipulators {
		spanCtx, end := telemetry.StartStage(ctx, "manipulate", m.ModuleName())
		err := m.Manipulate(spanCtx, g, e.WorkflowDir, sink)
		end()
		if err != nil {
			return &corpuserr.ManipulatorError{
				Reason:      err.Error(),
				Manipulator: m.ModuleName(),
				Err:         err,
			}
		}
		sink.Send(progress.NewStepDone(m.StepID()))
	}
	return nil
}

// runExporters spawns every exporter on a bounded worker pool against the
// now-immutable graph. Every exporter runs to completion regardless of
// sibling failures; all failures are collected into one aggregate error.
func (e *Executor) runExporters(ctx context.Context, g *graph.Graph, sink progress.Sender) error {
	n := len(e.Exporters)
	errs := make([]error, n)

	sem := make(chan struct{}, workerCount(e.MaxExportWorkers))
	var wg sync.WaitGroup

	for idx, exp := range e.Exporters {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, exp stage.Exporter) {
			defer wg.Done()
			defer func() { <-sem }()

			path := exp.StepID().Path
			spanCtx, end := telemetry.StartStage(ctx, "export", path)
			err := exp.Export(spanCtx, g, path, sink)
			end()
			if err != nil {
				errs[idx] = &corpuserr.ExportError{
					Reason:   err.Error(),
					Exporter: exp.ModuleName(),
					Path:     path,
					Err:      err,
				}
				return
			}
			sink.Send(progress.NewStepDone(exp.StepID()))
		}(idx, exp)
	}

	wg.Wait()

	var inner []error
	for _, err := range errs {
		if err != nil {
			inner = append(inner, err)
		}
	}
	if len(inner) == 0 {
		return nil
	}
	if len(inner) == 1 {
		return inner[0]
	}
	return &corpuserr.ConversionError{Inner: inner}
}
