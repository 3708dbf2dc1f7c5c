// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtcbin

import (
	"container/list"
	"sync"

	"github.com/pion/logging"
)

// taskResult is the tagged {value | error} reply slot of spec.md §4.6/§9.
type taskResult struct {
	Value interface{}
	Err   error
}

// task is one queued operation plus its single-reply promise channel. The
// channel is always buffered(1) and always written to exactly once, even
// when the PeerConnection is closed before the task runs (spec.md §4.6).
type task struct {
	run   func() (interface{}, error)
	reply chan taskResult
}

// taskQueue is the single-threaded ordered executor of spec.md §4.6/§9:
// "single-threaded cooperative core with external asynchronous producers
// funnelling their events through the task queue". Enqueue order equals
// execution order; closing drains all pending tasks with ErrConnectionClosed.
type taskQueue struct {
	mu      sync.Mutex
	items   *list.List
	running bool
	closed  bool

	log *logging.LeveledLogger
}

func newTaskQueue(factory logging.LoggerFactory) *taskQueue {
	return &taskQueue{items: list.New(), log: factory.NewLogger(logScopeTaskQueue)}
}

// Submit enqueues run and returns a channel that receives exactly one
// taskResult: the task's return value/error, or ErrConnectionClosed if the
// queue was already closed.
func (q *taskQueue) Submit(run func() (interface{}, error)) <-chan taskResult {
	reply := make(chan taskResult, 1)
	t := &task{run: run, reply: reply}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		reply <- taskResult{Err: ErrConnectionClosed}
		return reply
	}
	q.items.PushBack(t)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return reply
}

// SubmitSync is a convenience wrapper for callers that want to block for the
// result in-line (e.g. synchronous application operations).
func (q *taskQueue) SubmitSync(run func() (interface{}, error)) (interface{}, error) {
	res := <-q.Submit(run)
	return res.Value, res.Err
}

func (q *taskQueue) drain() {
	for {
		q.mu.Lock()
		front := q.items.Front()
		if front == nil {
			q.running = false
			q.mu.Unlock()
			return
		}
		q.items.Remove(front)
		q.mu.Unlock()

		t := front.Value.(*task)
		value, err := t.run()
		t.reply <- taskResult{Value: value, Err: err}
	}
}

// Close drains every pending task by replying with ErrConnectionClosed,
// spec.md §5 ("Closing the PeerConnection drains the queue by failing every
// pending task with invalid-state").
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for e := q.items.Front(); e != nil; e = e.Next() {
		t := e.Value.(*task)
		t.reply <- taskResult{Err: ErrConnectionClosed}
	}
	q.items.Init()
}
