package request

//
// Copyright (c) 2019 ARM Limited.
//
// SPDX-License-Identifier: MIT
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/collector"
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/response"
)

type State int32

const (
	StateCreated           State = iota
	StateAwaitingResponses State = iota
	StateCompleted         State = iota
	StateFailed            State = iota
	StateCancelled         State = iota
)

func (state State) IsTerminal() bool {
	return state == StateCompleted || state == StateFailed || state == StateCancelled
}

func (state State) String() string {
	switch state {
	case StateCreated:
		return "created"
	case StateAwaitingResponses:
		return "awaiting responses"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	}

	return "unknown"
}

// Request is the handle of one in-flight cluster call. It settles exactly
// once, by a collector result, a timeout, a cancellation or an explicit
// completion, whichever comes first.
type Request struct {
	id         uint64
	repository *Repository
	collector  collector.ResponseCollector
	createdAt  time.Time

	// mu serializes every call into the collector
	mu        sync.Mutex
	pending   address.Set
	collected bool

	state   int32
	settled chan struct{}
	result  interface{}
	err     error

	timeoutMu   sync.Mutex
	timeoutTask Cancelable

	callbacksMu    sync.Mutex
	callbacksFired bool
	callbacks      []func(interface{}, error)
}

func newRequest(id uint64, repository *Repository, responseCollector collector.ResponseCollector, targets []address.Address) *Request {
	return &Request{
		id:         id,
		repository: repository,
		collector:  responseCollector,
		createdAt:  time.Now(),
		pending:    address.NewSet(targets...),
		state:      int32(StateCreated),
		settled:    make(chan struct{}),
	}
}

func (request *Request) ID() uint64 {
	return request.id
}

func (request *Request) State() State {
	return State(atomic.LoadInt32(&request.state))
}

func (request *Request) Done() <-chan struct{} {
	return request.settled
}

func (request *Request) IsDone() bool {
	select {
	case <-request.settled:
		return true
	default:
		return false
	}
}

// Pending returns the destinations that have not replied yet
func (request *Request) Pending() []address.Address {
	request.mu.Lock()
	defer request.mu.Unlock()

	return request.pending.Sorted()
}

// Wait blocks until the request settles or ctx is done. A done context does
// not cancel the request.
func (request *Request) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-request.settled:
		return request.result, request.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get blocks for at most timeout. ETimeout is returned if the request has not
// settled by then, and the request keeps running.
func (request *Request) Get(timeout time.Duration) (interface{}, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-request.settled:
		return request.result, request.err
	case <-timer.C:
		return nil, ETimeout
	}
}

// WhenComplete registers a callback invoked once the request settles. If it
// already settled the callback runs immediately on the calling goroutine.
func (request *Request) WhenComplete(cb func(result interface{}, err error)) {
	request.callbacksMu.Lock()

	if request.callbacksFired {
		request.callbacksMu.Unlock()
		cb(request.result, request.err)

		return
	}

	request.callbacks = append(request.callbacks, cb)
	request.callbacksMu.Unlock()
}

func (request *Request) Complete(result interface{}) bool {
	return request.settle(StateCompleted, result, nil)
}

func (request *Request) CompleteExceptionally(err error) bool {
	return request.settle(StateFailed, nil, err)
}

func (request *Request) Cancel(cause error) bool {
	return request.settle(StateCancelled, nil, &CancellationError{RequestID: request.id, Cause: cause})
}

// SetTimeout fails the request with a TimeoutError if it has not settled
// within timeout. Calling it again replaces the previous timeout.
func (request *Request) SetTimeout(scheduler Scheduler, timeout time.Duration) {
	task := scheduler.Schedule(timeout, func() {
		if request.settle(StateFailed, nil, &TimeoutError{RequestID: request.id, Timeout: timeout, Pending: request.Pending()}) {
			Log.Warningf("Request %d timed out after %v", request.id, timeout)
		}
	})

	request.timeoutMu.Lock()

	if request.State().IsTerminal() {
		request.timeoutMu.Unlock()
		task.Cancel()

		return
	}

	previous := request.timeoutTask
	request.timeoutTask = task
	request.timeoutMu.Unlock()

	if previous != nil {
		previous.Cancel()
	}
}

// onResponse feeds one classified reply to the collector. Replies from members
// that are not pending destinations are dropped.
func (request *Request) onResponse(sender address.Address, r response.Response) {
	request.mu.Lock()

	if request.collected || request.IsDone() {
		request.mu.Unlock()
		Log.Debugf("Dropping %v from %v for request %d since it has already settled", r, sender, request.id)

		return
	}

	if !request.pending.Contains(sender) {
		request.mu.Unlock()
		Log.Debugf("Dropping %v from %v for request %d since %v is not a pending destination", r, sender, request.id, sender)

		return
	}

	request.pending.Remove(sender)

	result, done, err := request.addResponse(sender, r)

	if !done && err == nil && len(request.pending) == 0 {
		result, err = request.finish()
		done = true
	}

	if done || err != nil {
		request.collected = true
	}

	request.mu.Unlock()

	if err != nil {
		request.settle(StateFailed, nil, wrapCompletion(err))
	} else if done {
		request.settle(StateCompleted, result, nil)
	}
}

// onMembershipChange synthesizes TargetNotFound for every pending destination
// that is no longer a member
func (request *Request) onMembershipChange(members address.Set) {
	request.mu.Lock()

	var departed []address.Address

	for _, target := range request.pending {
		if !members.Contains(target) {
			departed = append(departed, target)
		}
	}

	request.mu.Unlock()

	for _, target := range departed {
		request.onResponse(target, response.TargetNotFound)
	}
}

// finishIfEmpty settles a request that has no destinations at all
func (request *Request) finishIfEmpty() {
	request.mu.Lock()

	if request.collected || len(request.pending) != 0 {
		request.mu.Unlock()

		return
	}

	result, err := request.finish()
	request.collected = true
	request.mu.Unlock()

	if err != nil {
		request.settle(StateFailed, nil, wrapCompletion(err))
	} else {
		request.settle(StateCompleted, result, nil)
	}
}

func (request *Request) addResponse(sender address.Address, r response.Response) (result interface{}, done bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, done, err = nil, true, fmt.Errorf("collector panicked while adding a response from %v: %v", sender, p)
		}
	}()

	return request.collector.AddResponse(sender, r)
}

func (request *Request) finish() (result interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			result, err = nil, fmt.Errorf("collector panicked while finishing: %v", p)
		}
	}()

	return request.collector.Finish()
}

func (request *Request) markAwaiting() {
	atomic.CompareAndSwapInt32(&request.state, int32(StateCreated), int32(StateAwaitingResponses))
}

// settle performs the terminal transition. Only the first caller wins. The
// winner cancels the timeout task, then removes the request from its
// repository, then releases waiters and callbacks.
func (request *Request) settle(state State, result interface{}, err error) bool {
	for {
		current := atomic.LoadInt32(&request.state)

		if State(current).IsTerminal() {
			return false
		}

		if atomic.CompareAndSwapInt32(&request.state, current, int32(state)) {
			break
		}
	}

	request.result = result
	request.err = err

	request.timeoutMu.Lock()
	task := request.timeoutTask
	request.timeoutTask = nil
	request.timeoutMu.Unlock()

	if task != nil {
		task.Cancel()
	}

	if request.repository != nil {
		request.repository.remove(request, state)
	}

	close(request.settled)

	request.callbacksMu.Lock()
	request.callbacksFired = true
	callbacks := request.callbacks
	request.callbacks = nil
	request.callbacksMu.Unlock()

	for _, cb := range callbacks {
		cb(result, err)
	}

	return true
}
