package validation

import (
	"sync"
	"time"

	"github.com/Veraticus/yesan/internal/model"
)

// DefaultDelay is how long a rule waits after the last relevant edit.
const DefaultDelay = 100 * time.Millisecond

// Result is delivered after a scheduled evaluation stored a new status.
type Result struct {
	Rule   Rule
	Status Status
}

// Option configures a Validator.
type Option func(*Validator)

// WithDelay sets the debounce delay. Zero or less evaluates synchronously
// inside Schedule.
func WithDelay(d time.Duration) Option {
	return func(v *Validator) {
		v.delay = d
	}
}

// WithNotify registers a callback invoked after each stored result. It runs
// on the evaluating goroutine and must not block.
func WithNotify(fn func(Result)) Option {
	return func(v *Validator) {
		v.notify = fn
	}
}

// WithObserver registers a hook counting completed evaluations.
func WithObserver(fn func(rule, status string)) Option {
	return func(v *Validator) {
		v.observe = fn
	}
}

// Validator owns the rule statuses of one voucher draft. Each rule has at
// most one pending evaluation; scheduling a rule again cancels the pending
// one, and a result computed for a superseded schedule is discarded.
type Validator struct {
	statuses map[Rule]Status
	pending  map[Rule]*time.Timer
	gens     map[Rule]uint64
	notify   func(Result)
	observe  func(rule, status string)
	delay    time.Duration
	mu       sync.Mutex
}

// NewValidator creates a validator with every rule Unknown.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		statuses: make(map[Rule]Status, len(Rules)),
		pending:  make(map[Rule]*time.Timer, len(Rules)),
		gens:     make(map[Rule]uint64, len(Rules)),
		delay:    DefaultDelay,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// FieldChanged schedules every rule affected by field against the snapshot.
func (val *Validator) FieldChanged(field model.Field, snapshot model.Voucher) {
	val.Schedule(AffectedRules(field), snapshot)
}

// Schedule cancels the pending evaluation of each rule and schedules a new
// one that reads the values captured in snapshot.
func (val *Validator) Schedule(rules []Rule, snapshot model.Voucher) {
	if val.delay <= 0 {
		val.runNow(rules, snapshot)
		return
	}

	val.mu.Lock()
	defer val.mu.Unlock()
	for _, r := range rules {
		val.cancelLocked(r)
		rule, gen := r, val.gens[r]
		val.pending[rule] = time.AfterFunc(val.delay, func() {
			val.run(rule, gen, snapshot)
		})
	}
}

func (val *Validator) runNow(rules []Rule, snapshot model.Voucher) {
	for _, r := range rules {
		val.mu.Lock()
		val.cancelLocked(r)
		gen := val.gens[r]
		val.mu.Unlock()
		val.run(r, gen, snapshot)
	}
}

// cancelLocked stops the pending evaluation of r and invalidates any that
// already started.
func (val *Validator) cancelLocked(r Rule) {
	if t, ok := val.pending[r]; ok {
		t.Stop()
		delete(val.pending, r)
	}
	val.gens[r]++
}

func (val *Validator) run(r Rule, gen uint64, snapshot model.Voucher) {
	status, evaluated := Evaluate(r, snapshot)

	val.mu.Lock()
	if val.gens[r] != gen {
		val.mu.Unlock()
		return
	}
	delete(val.pending, r)
	if !evaluated {
		val.mu.Unlock()
		return
	}
	val.statuses[r] = status
	notify, observe := val.notify, val.observe
	val.mu.Unlock()

	if observe != nil {
		observe(string(r), status.String())
	}
	if notify != nil {
		notify(Result{Rule: r, Status: status})
	}
}

// Status returns the current status of a rule.
func (val *Validator) Status(r Rule) Status {
	val.mu.Lock()
	defer val.mu.Unlock()
	return val.statuses[r]
}

// Statuses returns a copy of every rule status.
func (val *Validator) Statuses() Statuses {
	val.mu.Lock()
	defer val.mu.Unlock()
	out := make(Statuses, len(Rules))
	for _, r := range Rules {
		out[r] = val.statuses[r]
	}
	return out
}

// Pending reports whether any evaluation is still scheduled.
func (val *Validator) Pending() bool {
	val.mu.Lock()
	defer val.mu.Unlock()
	return len(val.pending) > 0
}

// Flush cancels pending work and evaluates every rule now.
func (val *Validator) Flush(snapshot model.Voucher) Statuses {
	val.runNow(Rules, snapshot)
	return val.Statuses()
}

// Reset cancels pending work and returns every rule to Unknown.
func (val *Validator) Reset() {
	val.mu.Lock()
	defer val.mu.Unlock()
	for _, r := range Rules {
		val.cancelLocked(r)
	}
	val.statuses = make(map[Rule]Status, len(Rules))
}

// Stop cancels pending work without touching statuses.
func (val *Validator) Stop() {
	val.mu.Lock()
	defer val.mu.Unlock()
	for r := range val.pending {
		val.cancelLocked(r)
	}
}
