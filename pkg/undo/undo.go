// Package undo provides the single-slot, time-boxed compensating action
// armed after destructive operations.
package undo

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long the undo affordance stays available.
const DefaultTTL = 8 * time.Second

// Action compensates a destructive operation. It may be asynchronous; the
// controller runs it once and disarms regardless of the outcome. Failure
// reporting is the action's own job.
type Action func(ctx context.Context) error

// Notify is invoked whenever the slot arms or disarms so a UI affordance can
// show or hide. Armed carries the message while armed.
type Notify func(message string, armed bool)

// Option configures a Controller.
type Option func(*Controller)

// WithTTL overrides the countdown duration.
func WithTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNotify installs the affordance callback.
func WithNotify(fn Notify) Option {
	return func(c *Controller) {
		c.notify = fn
	}
}

// Controller holds at most one pending compensating action. Arming replaces
// any previous slot silently; expiry disarms silently; disarming is
// idempotent.
type Controller struct {
	mu      sync.Mutex
	ttl     time.Duration
	notify  Notify
	message string
	action  Action
	timer   *time.Timer
}

func New(opts ...Option) *Controller {
	c := &Controller{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Arm replaces any existing slot with the given message and compensating
// action and restarts the countdown.
func (c *Controller) Arm(message string, action Action) {
	c.mu.Lock()
	c.stopTimerLocked()
	c.message = message
	c.action = action
	c.timer = time.AfterFunc(c.ttl, c.Disarm)
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(message, true)
	}
}

// Trigger runs the armed action and disarms no matter how it went. Calling
// it with nothing armed is a no-op.
func (c *Controller) Trigger(ctx context.Context) error {
	c.mu.Lock()
	action := c.action
	c.action = nil
	c.mu.Unlock()

	if action == nil {
		return nil
	}
	defer c.Disarm()
	return action(ctx)
}

// Disarm clears the slot, stops the countdown, and hides the affordance.
// Safe to call any number of times.
func (c *Controller) Disarm() {
	c.mu.Lock()
	wasArmed := c.action != nil || c.message != ""
	c.stopTimerLocked()
	c.message = ""
	c.action = nil
	notify := c.notify
	c.mu.Unlock()

	if wasArmed && notify != nil {
		notify("", false)
	}
}

// Armed reports the current slot state.
func (c *Controller) Armed() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message, c.action != nil
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
