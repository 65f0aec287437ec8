package engine

import "sync"

// Completion delivers a Result to a single callback exactly once.
// Engines embed it in their OpenHandle implementations.
type Completion struct {
	mu       sync.Mutex
	resolved bool
	result   Result
	fn       func(Result)
}

// OnCompletion registers fn. If the result is already known, fn runs on a new
// goroutine so that callers holding locks are never re-entered.
// Only the first registration is kept.
func (c *Completion) OnCompletion(fn func(Result)) {
	c.mu.Lock()
	if c.fn != nil || fn == nil {
		c.mu.Unlock()
		return
	}
	c.fn = fn
	resolved, result := c.resolved, c.result
	c.mu.Unlock()

	if resolved {
		go fn(result)
	}
}

// Resolve records r and invokes the callback if one is registered.
// Returns false if the completion was already resolved.
func (c *Completion) Resolve(r Result) bool {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return false
	}
	c.resolved = true
	c.result = r
	fn := c.fn
	c.mu.Unlock()

	if fn != nil {
		fn(r)
	}
	return true
}

// Resolved reports whether a result has been delivered.
func (c *Completion) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}
