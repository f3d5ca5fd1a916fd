// Package hook wires the full decision pipeline for one invocation:
// decode the event from stdin, load the rules, route matched rules to
// their handlers, merge, and emit the response JSON on stdout.
package hook

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hookline/hookline/internal/action"
	"github.com/hookline/hookline/internal/audit"
	"github.com/hookline/hookline/internal/config"
	"github.com/hookline/hookline/internal/decision"
	"github.com/hookline/hookline/internal/event"
	"github.com/hookline/hookline/internal/knowledge"
	"github.com/hookline/hookline/internal/logger"
	"github.com/hookline/hookline/internal/match"
	"github.com/hookline/hookline/internal/merge"
	"github.com/hookline/hookline/internal/output"
	"github.com/hookline/hookline/internal/router"
	"github.com/hookline/hookline/internal/rule"
)

// AuditVersion is the audit entry format version.
const AuditVersion = 1

// Options adjusts one pipeline run.
type Options struct {
	// DryRun prints the decision to stderr instead of emitting JSON.
	DryRun bool
	// RulesDir overrides the configured rules directory.
	RulesDir string
}

// Result reports what one invocation did, for tests and dry-run output.
type Result struct {
	Event    *event.Event
	Decision *decision.Decision
	Reports  []router.Report
	Rejected []rule.Rejected
}

// Process runs the pipeline. The caller always gets a response on
// stdout, even when hookline cannot decide: every failure path emits
// the empty object before the error is returned.
func Process(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cfg *config.Config, opts Options) (*Result, error) {
	start := time.Now()

	raw, err := io.ReadAll(stdin)
	if err != nil {
		emitEmpty(stdout)
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}

	ev, err := event.Parse(raw)
	if err != nil {
		emitEmpty(stdout)
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}

	rulesDir := cfg.RulesDir
	if opts.RulesDir != "" {
		rulesDir = opts.RulesDir
	}
	store, rejected := loadRules(rulesDir)
	rules := store.Query(ev.Kind)
	logger.Debug("routing event", "event", ev.Kind, "session", ev.SessionID, "rules", len(rules))

	kstore := openKnowledge(cfg.KnowledgePath, rules)
	if kstore != nil {
		defer kstore.Close()
	}

	rt := router.New(
		&match.Matcher{Aliases: cfg.Aliases},
		action.NewRegistry(kstore),
		router.Config{MaxConcurrent: cfg.MaxConcurrent, HandlerTimeout: cfg.HandlerTimeout},
	)
	decisions, reports := rt.Route(ctx, ev, rules)
	final := merge.Merge(decisions)

	if len(final.Loaders) > 0 {
		loaders := &output.Loaders{Dir: cfg.LoadersDir}
		final.Context = append(final.Context, loaders.Resolve(final.Loaders)...)
	}

	if opts.DryRun {
		emitEmpty(stdout)
		output.DryRun(stderr, final, ev.Kind)
	} else if err := output.Emit(stdout, output.Build(final, ev.Kind), ev.Kind); err != nil {
		return nil, err
	}

	logAudit(ev, final, reports, opts.DryRun, time.Since(start))

	return &Result{Event: ev, Decision: final, Reports: reports, Rejected: rejected}, nil
}

// loadRules loads rule documents from dir. A missing directory falls
// back to the embedded starter rules so a fresh install still behaves
// sensibly before `hookline init` has run.
func loadRules(dir string) (*rule.Store, []rule.Rejected) {
	var docs []rule.Document
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		logger.Debug("rules directory missing, using embedded defaults", "dir", dir)
		docs = rule.DefaultDocuments()
	} else {
		docs = rule.LoadDir(dir)
	}

	store, rejected := rule.Load(docs)
	for _, rej := range rejected {
		logger.Warn("rule rejected", "rule", rej.Name, "path", rej.Path, "reasons", rej.Reasons)
	}
	return store, rejected
}

// openKnowledge opens the note store only when a memory rule could use
// it, and only if the database already exists. The hook never creates
// the store; `hookline remember` does.
func openKnowledge(path string, rules []*rule.Rule) *knowledge.Store {
	needed := false
	for _, r := range rules {
		if r.Action.Kind == rule.ActionMemory {
			needed = true
			break
		}
	}
	if !needed || path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("knowledge store unavailable", "path", path, "error", err)
		return nil
	}
	store, err := knowledge.Open(path)
	if err != nil {
		logger.Warn("failed to open knowledge store", "path", path, "error", err)
		return nil
	}
	return store
}

func emitEmpty(w io.Writer) {
	fmt.Fprintln(w, "{}")
}

func logAudit(ev *event.Event, final *decision.Decision, reports []router.Report, dryRun bool, elapsed time.Duration) {
	if !audit.IsEnabled() {
		return
	}

	records := make([]audit.RuleRecord, len(reports))
	for i, rep := range reports {
		rec := audit.RuleRecord{
			Name:      rep.Rule,
			Matched:   rep.Matched,
			Skipped:   rep.Skipped,
			ElapsedMs: float64(rep.Elapsed.Microseconds()) / 1000,
		}
		if rep.Err != nil {
			rec.Error = rep.Err.Error()
		}
		if rep.Decision != nil {
			rec.Outcome = string(rep.Decision.Out)
		}
		records[i] = rec
	}

	entry := audit.Entry{
		Version:      AuditVersion,
		InvocationID: audit.NewInvocationID(),
		SessionID:    ev.SessionID,
		DurationMs:   float64(elapsed.Microseconds()) / 1000,
		Event:        string(ev.Kind),
		ToolName:     ev.ToolName,
		Command:      ev.CommandLine(),
		Rules:        records,
		Outcome:      string(final.Out),
		Rule:         final.Rule,
		Reason:       final.Reason,
		DryRun:       dryRun,
	}
	if err := audit.Log(entry); err != nil {
		logger.Debug("failed to write audit entry", "error", err)
	}
}
