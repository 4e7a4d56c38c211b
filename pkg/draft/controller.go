package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSubmissionInFlight is returned when Submit is called while a
	// previous submission attempt has not yet completed.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	// ErrNotAuthenticated is returned when no active session can be
	// resolved at submission time. No write is attempted.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// DefaultTimeout bounds a single submission attempt when no explicit
// timeout is configured.
const DefaultTimeout = 15 * time.Second

// Steps supplies the dependent remote calls executed by one submission.
// Resolve and Insert are mandatory; Upload is optional and, when present,
// must complete before Insert is attempted.
type Steps struct {
	// Resolve returns the authenticated caller's id, or an error wrapping
	// ErrNotAuthenticated when no session is active.
	Resolve func(ctx context.Context) (callerID string, err error)

	// Upload transfers an attached file and returns its public reference.
	// A nil Upload skips the step.
	Upload func(ctx context.Context, callerID string) (ref string, err error)

	// Insert persists the composed record. uploadRef is "" when no file was
	// attached. idempotencyKey is a fresh client-generated token for this
	// attempt.
	Insert func(ctx context.Context, d Draft, callerID, uploadRef, idempotencyKey string) error
}

// Controller owns one form's draft for the duration of a submission attempt.
// Field updates use copy-on-write semantics; Submit runs the ordered
// pipeline and, on success, resets the draft and closes the form exactly
// once.
type Controller struct {
	mu         sync.Mutex
	blank      Draft
	draft      Draft
	required   []string
	timeout    time.Duration
	submitting bool
	open       bool
	onRefresh  func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds each submission attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRefresh registers a callback invoked after each successful
// submission (dashboards use this to re-aggregate counts).
func WithRefresh(fn func()) Option {
	return func(c *Controller) { c.onRefresh = fn }
}

// NewController creates a controller with a blank draft over the given
// fields, of which required must be non-empty at submission time.
func NewController(fields, required []string, opts ...Option) *Controller {
	blank := New(fields...)
	c := &Controller{
		blank:    blank,
		draft:    blank,
		required: required,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open marks the form visible with whatever draft it currently holds.
func (c *Controller) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
}

// IsOpen reports the form's visibility flag.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Close hides the form without touching the draft.
func (c *Controller) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// SetField replaces one field's value, leaving all others unchanged.
func (c *Controller) SetField(field, value string) {
	c.mu.Lock()
	c.draft = c.draft.Set(field, value)
	c.mu.Unlock()
}

// SetFields applies several field updates at once.
func (c *Controller) SetFields(values map[string]string) {
	c.mu.Lock()
	d := c.draft
	for k, v := range values {
		d = d.Set(k, v)
	}
	c.draft = d
	c.mu.Unlock()
}

// Draft returns a snapshot of the current draft.
func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(Draft, len(c.draft))
	for k, v := range c.draft {
		out[k] = v
	}
	return out
}

// Submitting reports whether a submission attempt is outstanding.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Submit runs one submission attempt:
//
//  1. rejects concurrent attempts while one is in flight
//  2. validates required fields before any remote call
//  3. resolves the authenticated caller (abort before any write if none)
//  4. runs the optional upload step; its failure suppresses the insert
//  5. inserts the composed record with a fresh idempotency token
//  6. on success resets the draft, closes the form, invokes the refresh
//     callback; on failure the draft is left intact for a manual retry
//
// No automatic retry is attempted.
func (c *Controller) Submit(ctx context.Context, steps Steps) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmissionInFlight
	}
	snapshot := c.draft
	if err := snapshot.RequireFields(c.required...); err != nil {
		c.mu.Unlock()
		return err
	}
	c.submitting = true
	c.mu.Unlock()

	err := c.run(ctx, snapshot, steps)

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.draft = c.blank.Reset()
		c.open = false
	}
	c.mu.Unlock()

	if err == nil && c.onRefresh != nil {
		c.onRefresh()
	}
	return err
}

func (c *Controller) run(ctx context.Context, snapshot Draft, steps Steps) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	callerID, err := steps.Resolve(ctx)
	if err != nil {
		return err
	}

	uploadRef := ""
	if steps.Upload != nil {
		uploadRef, err = steps.Upload(ctx, callerID)
		if err != nil {
			return err
		}
	}

	return steps.Insert(ctx, snapshot, callerID, uploadRef, uuid.New().String())
}
