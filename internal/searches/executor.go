package searches

import "sync"

// Executor runs background executions and lets shutdown wait for them.
type Executor struct {
	wg sync.WaitGroup
}

func NewExecutor() *Executor {
	return &Executor{}
}

// Go runs fn on its own goroutine.
func (e *Executor) Go(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// Wait blocks until every started execution has returned.
func (e *Executor) Wait() {
	e.wg.Wait()
}
