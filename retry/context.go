package retry

import "time"

// AttemptRecord is one entry in a Context's attempt history.
type AttemptRecord struct {
	Attempt   int
	Timestamp time.Time
	Success   bool
	Err       error
}

// Context tracks one Execute call's retry bookkeeping: the 1-based attempt
// count (after the first failure), the start time, and the ordered
// attempt history. It is mutated only by the retry engine.
type Context struct {
	Attempt   int
	StartedAt time.Time
	History   []AttemptRecord
}

// NewContext starts a fresh retry context.
func NewContext() *Context {
	return &Context{StartedAt: time.Now()}
}

// Elapsed returns time since the context was started.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartedAt)
}

func (c *Context) recordFailure(err error) {
	c.Attempt++
	c.History = append(c.History, AttemptRecord{
		Attempt:   c.Attempt,
		Timestamp: time.Now(),
		Success:   false,
		Err:       err,
	})
}

func (c *Context) recordSuccess() {
	c.History = append(c.History, AttemptRecord{
		Attempt:   c.Attempt + 1,
		Timestamp: time.Now(),
		Success:   true,
	})
}

// LastError returns the most recent recorded failure, if any.
func (c *Context) LastError() error {
	for i := len(c.History) - 1; i >= 0; i-- {
		if !c.History[i].Success {
			return c.History[i].Err
		}
	}
	return nil
}
