package analyzer

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"sentryd/internal/config"
	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
	"sentryd/internal/store"
	"sentryd/internal/walker"
)

// BatchResult is one analysis pass's output: every issue found, sorted for
// stable presentation, plus the metrics spec §4.3 asks the Orchestrator to
// report (files/sec, issues by severity, patterns learned).
type BatchResult struct {
	Issues           []model.Issue
	FilesAnalyzed    int
	Duration         time.Duration
	IssuesBySeverity map[model.Severity]int
	PatternsLearned  int
}

// RecursiveResult is the outcome of RunRecursive: one BatchResult per pass,
// plus whether a regression aborted the loop before convergence.
type RecursiveResult struct {
	Passes             []BatchResult
	RegressionDetected bool
	ConvergedAtPass    int // 0 if it ran out of passes without reaching zero critical+high issues
}

// Orchestrator dispatches files to registered LanguageAnalyzers over a
// bounded worker pool and drives the recursive-improvement loop.
type Orchestrator struct {
	registry *Registry
	stores   *store.Registry
	cfg      *config.Config
	walker   *walker.Walker
	generic  LanguageAnalyzer // claims any extension no registered analyzer owns; may be nil
}

// NewOrchestrator wires a Registry of analyzers, the Memory Store registry,
// runtime config, and a project Walker into a single entry point.
func NewOrchestrator(reg *Registry, stores *store.Registry, cfg *config.Config, w *walker.Walker) *Orchestrator {
	return &Orchestrator{registry: reg, stores: stores, cfg: cfg, walker: w}
}

// SetGenericAnalyzer installs the fallback analyzer used for files whose
// extension no specific LanguageAnalyzer has claimed.
func (o *Orchestrator) SetGenericAnalyzer(a LanguageAnalyzer) {
	o.generic = a
}

// RunBatch analyzes every path in paths concurrently, bounded by
// cfg.Concurrency.MaxWorkers, and merges the results.
func (o *Orchestrator) RunBatch(ctx context.Context, paths []string) (BatchResult, error) {
	timer := logging.StartTimer(logging.CategoryAnalyzer, "RunBatch")
	defer timer.Stop()

	start := time.Now()
	maxWorkers := o.cfg.Concurrency.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	sem := semaphore.NewWeighted(int64(maxWorkers))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var allIssues []model.Issue
	perAnalyzerIssues := make(map[LanguageAnalyzer][]model.Issue)

	for _, path := range paths {
		path := path
		a := o.registry.For(path)
		if a == nil {
			a = o.generic
		}
		if a == nil {
			logging.AnalyzerDebug("analyzer: no analyzer claims %s, skipping", path)
			continue
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			issues, err := o.analyzeOne(gctx, a, path)
			if err != nil {
				logging.AnalyzerWarn("analyzer: %s failed on %s: %v", a.LanguageName(), path, err)
				return nil
			}
			mu.Lock()
			allIssues = append(allIssues, issues...)
			perAnalyzerIssues[a] = append(perAnalyzerIssues[a], issues...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, errs.Wrap(errs.KindTimeout, err, "analysis batch failed")
	}

	sortIssues(allIssues)

	learned := 0
	for a, issues := range perAnalyzerIssues {
		h, err := o.handleFor(a.LanguageName())
		if err != nil {
			logging.AnalyzerWarn("analyzer: cannot open store for %s: %v", a.LanguageName(), err)
			continue
		}
		if err := a.LearnFromAnalysis(ctx, issues, h); err != nil {
			logging.AnalyzerWarn("analyzer: learn_from_analysis failed for %s: %v", a.LanguageName(), err)
			continue
		}
		learned += len(issues)
	}

	bySeverity := make(map[model.Severity]int)
	for _, iss := range allIssues {
		bySeverity[iss.Severity]++
	}

	result := BatchResult{
		Issues:           allIssues,
		FilesAnalyzed:    len(paths),
		Duration:         time.Since(start),
		IssuesBySeverity: bySeverity,
		PatternsLearned:  learned,
	}
	logging.Analyzer("analyzer: batch of %d files in %s, %d issues (critical=%d high=%d medium=%d low=%d)",
		result.FilesAnalyzed, result.Duration, len(allIssues),
		bySeverity[model.SeverityCritical], bySeverity[model.SeverityHigh], bySeverity[model.SeverityMedium], bySeverity[model.SeverityLow])
	return result, nil
}

func (o *Orchestrator) analyzeOne(ctx context.Context, a LanguageAnalyzer, path string) ([]model.Issue, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIOError, err, "failed to read %s", path)
	}
	h, err := o.handleFor(a.LanguageName())
	if err != nil {
		return nil, err
	}
	return a.AnalyzeFile(ctx, path, content, h, o.stores.CrossReferenceIndex())
}

func (o *Orchestrator) handleFor(language string) (*store.Handle, error) {
	return o.stores.Open(language)
}

// sortIssues orders issues by (file_path, line, type), the stable ordering
// spec §4.3 requires for presentation and diffing across runs.
func sortIssues(issues []model.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].FilePath != issues[j].FilePath {
			return issues[i].FilePath < issues[j].FilePath
		}
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Type < issues[j].Type
	})
}

// criticalHighCount counts critical- and high-severity issues, the metric
// the recursive-improvement loop must see strictly decrease pass over pass.
func criticalHighCount(issues []model.Issue) int {
	n := 0
	for _, iss := range issues {
		if iss.Severity == model.SeverityCritical || iss.Severity == model.SeverityHigh {
			n++
		}
	}
	return n
}

// RunRecursive repeatedly walks and analyzes opts's scope, up to
// config.EffectiveRecursionDepth() passes, stopping early once no
// critical/high issues remain. Each pass after the first must show a
// strictly lower critical+high count than the one before it; a pass that
// doesn't improve aborts the loop with RegressionDetected (spec §4.3,
// §4.11's non-regression guarantee).
func (o *Orchestrator) RunRecursive(ctx context.Context, opts walker.Options) (RecursiveResult, error) {
	maxPasses := o.cfg.EffectiveRecursionDepth()
	var result RecursiveResult
	prevCount := -1

	for pass := 1; pass <= maxPasses; pass++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		paths, err := o.walker.Walk(ctx, opts)
		if err != nil {
			return result, err
		}
		batch, err := o.RunBatch(ctx, paths)
		if err != nil {
			return result, err
		}
		result.Passes = append(result.Passes, batch)

		count := criticalHighCount(batch.Issues)
		if count == 0 {
			result.ConvergedAtPass = pass
			return result, nil
		}
		if prevCount >= 0 && count >= prevCount {
			result.RegressionDetected = true
			logging.AnalyzerError("analyzer: recursive pass %d did not improve (critical+high %d -> %d), aborting", pass, prevCount, count)
			return result, errs.New(errs.KindRegressionDetected, "pass %d did not reduce critical+high issue count (%d -> %d)", pass, prevCount, count)
		}
		prevCount = count
	}
	return result, nil
}
