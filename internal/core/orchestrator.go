// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"time"

	"github.com/toeirei/keyrepo/internal/logging"
	"github.com/toeirei/keyrepo/internal/model"
)

// State is the lifecycle state of an Orchestrator.
type State int

const (
	Idle State = iota
	Initializing
	Operating
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Initializing:
		return "initializing"
	case Operating:
		return "operating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool { return s == Done || s == Failed }

// Event is delivered to the observer on every state change and after
// every finished step. Op is zero for pure state changes.
type Event struct {
	Time  time.Time
	State State
	Op    model.Operation
	Err   error
}

// Observer receives orchestration events.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Notify(e Event) { f(e) }

// Report summarizes a finished run.
type Report struct {
	Path      string
	Requested model.OpSet
	Completed model.OpSet
	FailedOp  model.Operation // zero when the run succeeded
	State     State
	Err       error
	Backup    model.BackupRecord
	Started   time.Time
	Finished  time.Time
}

// Orchestrator runs the requested operations against one repository.
type Orchestrator struct {
	cfg      Configuration
	deps     Deps
	log      logging.Logger
	observer Observer
	now      func() time.Time

	state     State
	backup    model.BackupRecord
	completed model.OpSet
	failedOp  model.Operation
	err       error
	started   time.Time
	finished  time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithObserver registers an observer for state changes and steps.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides the clock used for the report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New returns an idle orchestrator for cfg.
func New(cfg Configuration, deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:  cfg,
		deps: deps,
		log:  logging.Discard(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Configuration returns the configuration the orchestrator was built with.
func (o *Orchestrator) Configuration() Configuration { return o.cfg }

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// BackupRecord returns the record of the backup taken during Run. It is
// empty when no backup ran or there was nothing to back up.
func (o *Orchestrator) BackupRecord() model.BackupRecord {
	return model.NewBackupRecord(o.backup.Dir, o.backup.Files())
}

// Report returns the outcome of Run.
func (o *Orchestrator) Report() Report {
	return Report{
		Path:      o.cfg.RepositoryPath(),
		Requested: o.cfg.Operations(),
		Completed: o.completed,
		FailedOp:  o.failedOp,
		State:     o.state,
		Err:       o.err,
		Backup:    o.BackupRecord(),
		Started:   o.started,
		Finished:  o.finished,
	}
}

// Run executes the configured operations. Init is exclusive: when it is
// requested nothing else runs. Otherwise the repository must exist, and
// backup, certs, keys and pwhash run in that order until the first
// failure. Run may only be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.state != Idle {
		return model.Errorf(model.KindInvalidConfig, "run", o.cfg.RepositoryPath(), "orchestrator already ran (state %s)", o.state)
	}
	o.started = o.now()
	ops := o.cfg.Operations()
	path := o.cfg.RepositoryPath()

	if ops.Has(model.OpInit) {
		o.transition(Initializing)
		if others := ops &^ model.NewOpSet(model.OpInit); !others.Empty() {
			o.log.Warnf("init runs alone; ignoring %s", others)
		}
		return o.finish(o.step(model.OpInit, func() error {
			if o.deps.Store == nil {
				return missingDep(model.OpInit)
			}
			o.log.Infof("initializing repository %s", path)
			return model.Classify(model.KindStorage, "init", path, o.deps.Store.Initialize(path, o.cfg.BaseDirectory()))
		}))
	}

	o.transition(Operating)
	if o.deps.Store == nil {
		return o.finish(missingDep(model.OpBackup))
	}
	if !o.deps.Store.Exists(path) {
		err := model.E(model.KindNotFound, "run", path, nil)
		o.log.Errorf("repository %s does not exist; run with --init first", path)
		return o.finish(err)
	}
	if ops.Empty() {
		o.log.Infof("no operation requested for %s", path)
	}

	steps := []struct {
		op model.Operation
		fn func() error
	}{
		{model.OpBackup, func() error { return o.runBackup(path) }},
		{model.OpCerts, func() error { return o.runCerts(ctx, path) }},
		{model.OpKeys, func() error { return o.runKeys(ctx, path) }},
		{model.OpPasswordHash, func() error { return o.runSecret(path) }},
	}
	for _, s := range steps {
		if !ops.Has(s.op) {
			continue
		}
		if err := o.step(s.op, s.fn); err != nil {
			return o.finish(err)
		}
	}
	return o.finish(nil)
}

func (o *Orchestrator) runBackup(path string) error {
	rec, err := o.deps.Store.Backup(path)
	o.backup = rec
	if err != nil {
		return model.Classify(model.KindStorage, "backup", path, err)
	}
	if rec.Empty() {
		o.log.Infof("nothing to back up in %s", path)
	} else {
		o.log.Infof("backed up %d files to %s", rec.Len(), rec.Dir)
	}
	return nil
}

func (o *Orchestrator) runCerts(ctx context.Context, path string) error {
	if o.deps.Certs == nil {
		return missingDep(model.OpCerts)
	}
	err := o.deps.Certs.ProvisionAll(ctx, path, o.cfg.Environments(), o.cfg.Hostname(), o.cfg.Organization())
	return model.Classify(model.KindExternalTool, "certs", path, err)
}

func (o *Orchestrator) runKeys(ctx context.Context, path string) error {
	if o.deps.Keys == nil {
		return missingDep(model.OpKeys)
	}
	return model.Classify(model.KindExternalTool, "keys", path, o.deps.Keys.ProvisionAll(ctx, path, o.cfg.Identities()))
}

func (o *Orchestrator) runSecret(path string) error {
	if o.deps.Secret == nil {
		return missingDep(model.OpPasswordHash)
	}
	return model.Classify(model.KindGeneration, "pwhash", path, o.deps.Secret.Generate(path))
}

// step runs fn for op, logging and reporting its outcome.
func (o *Orchestrator) step(op model.Operation, fn func() error) error {
	o.log.Debugf("starting %s", op)
	err := fn()
	if err != nil {
		o.failedOp = op
		o.log.Errorf("%s failed: %v", op, err)
	} else {
		o.completed = o.completed.With(op)
	}
	o.notify(Event{State: o.state, Op: op, Err: err})
	return err
}

func (o *Orchestrator) finish(err error) error {
	o.err = err
	o.finished = o.now()
	if err != nil {
		o.transition(Failed)
		return err
	}
	o.transition(Done)
	return nil
}

func (o *Orchestrator) transition(s State) {
	o.log.Debugf("state %s -> %s", o.state, s)
	o.state = s
	o.notify(Event{State: s, Err: o.err})
}

func (o *Orchestrator) notify(e Event) {
	if o.observer == nil {
		return
	}
	e.Time = o.now()
	o.observer.Notify(e)
}

func missingDep(op model.Operation) error {
	return model.Errorf(model.KindInvalidConfig, op.String(), "", "no collaborator configured for %s", op)
}
