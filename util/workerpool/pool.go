package workerpool

import (
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// TaskError is returned by Wait for a task that returned an error.
type TaskError struct {
	Label string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s: %v", e.Label, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// PanicError is returned by Wait for a task that panicked.
type PanicError struct {
	Label string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Label, e.Value)
}

// Pool runs submitted tasks with at most size of them in flight. A failing
// task never cancels its siblings; results and errors are kept in the order
// tasks finish.
type Pool[T any] struct {
	g errgroup.Group

	mtx     sync.Mutex
	results []T
	errs    []error
}

func New[T any](size int) *Pool[T] {
	if size < 1 {
		size = 1
	}
	p := &Pool[T]{}
	p.g.SetLimit(size)
	return p
}

// Submit blocks until a worker slot is free, then runs task in it.
func (p *Pool[T]) Submit(label string, task func() (T, error)) {
	p.g.Go(func() error {
		res, err := p.run(label, task)

		p.mtx.Lock()
		defer p.mtx.Unlock()
		if err != nil {
			p.errs = append(p.errs, err)
		} else {
			p.results = append(p.results, res)
		}

		return nil
	})
}

func (p *Pool[T]) run(label string, task func() (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Label: label, Value: r, Stack: debug.Stack()}
		}
	}()

	res, err = task()
	if err != nil {
		return res, &TaskError{Label: label, Err: err}
	}
	return res, nil
}

// Wait blocks until every submitted task has finished.
func (p *Pool[T]) Wait() ([]T, []error) {
	_ = p.g.Wait()

	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.results, p.errs
}
