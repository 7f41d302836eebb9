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
	"sync"
	"sync/atomic"
	"time"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/collector"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/response"
)

const RepositoryShards = 64

// Observer is notified of every registration and terminal transition
type Observer interface {
	RequestRegistered()
	RequestSettled(state State, elapsed time.Duration)
}

type repositoryShard struct {
	mu       sync.RWMutex
	requests map[uint64]*Request
}

// Repository tracks in-flight requests by id. Requests hash to one of a fixed
// number of shards so unrelated requests rarely contend for the same lock.
type Repository struct {
	nextRequestID uint64
	shards        [RepositoryShards]*repositoryShard
	observer      Observer
}

func NewRepository() *Repository {
	repository := &Repository{}

	for i := range repository.shards {
		repository.shards[i] = &repositoryShard{
			requests: make(map[uint64]*Request),
		}
	}

	return repository
}

// SetObserver must be called before any request is registered
func (repository *Repository) SetObserver(observer Observer) {
	repository.observer = observer
}

func (repository *Repository) shard(id uint64) *repositoryShard {
	return repository.shards[id%RepositoryShards]
}

// NewRequest registers a request whose replies are aggregated by
// responseCollector and which waits for a reply from every target. A request
// without targets settles immediately with the result of Finish.
func (repository *Repository) NewRequest(responseCollector collector.ResponseCollector, targets []address.Address) *Request {
	for {
		id := atomic.AddUint64(&repository.nextRequestID, 1)
		shard := repository.shard(id)
		request := newRequest(id, repository, responseCollector, targets)

		shard.mu.Lock()

		if _, ok := shard.requests[id]; ok {
			// Only possible after the id space wrapped around
			shard.mu.Unlock()

			continue
		}

		shard.requests[id] = request
		shard.mu.Unlock()

		if repository.observer != nil {
			repository.observer.RequestRegistered()
		}

		request.markAwaiting()
		request.finishIfEmpty()

		return request
	}
}

func (repository *Repository) Get(id uint64) (*Request, bool) {
	shard := repository.shard(id)

	shard.mu.RLock()
	defer shard.mu.RUnlock()

	request, ok := shard.requests[id]

	return request, ok
}

// OnResponse routes a classified reply to the request it belongs to. Replies
// for unknown or already settled requests are expected and ignored.
func (repository *Repository) OnResponse(id uint64, sender address.Address, r response.Response) {
	request, ok := repository.Get(id)

	if !ok {
		Log.Debugf("Ignoring %v from %v for request %d since the request is no longer registered", r, sender, id)

		return
	}

	request.onResponse(sender, r)
}

// OnMembershipChange gives every in-flight request a TargetNotFound reply for
// each of its pending destinations that is not in members
func (repository *Repository) OnMembershipChange(members []address.Address) {
	memberSet := address.NewSet(members...)

	repository.ForEach(func(request *Request) {
		request.onMembershipChange(memberSet)
	})
}

// ForEach visits a snapshot of the registered requests. The shard locks are
// not held while fn runs.
func (repository *Repository) ForEach(fn func(request *Request)) {
	for _, shard := range repository.shards {
		shard.mu.RLock()
		requests := make([]*Request, 0, len(shard.requests))

		for _, request := range shard.requests {
			requests = append(requests, request)
		}

		shard.mu.RUnlock()

		for _, request := range requests {
			fn(request)
		}
	}
}

func (repository *Repository) Len() int {
	n := 0

	for _, shard := range repository.shards {
		shard.mu.RLock()
		n += len(shard.requests)
		shard.mu.RUnlock()
	}

	return n
}

func (repository *Repository) CancelAll(cause error) {
	repository.ForEach(func(request *Request) {
		request.Cancel(cause)
	})
}

func (repository *Repository) remove(request *Request, state State) {
	shard := repository.shard(request.id)

	shard.mu.Lock()

	current, ok := shard.requests[request.id]

	if ok && current == request {
		delete(shard.requests, request.id)
	}

	shard.mu.Unlock()

	if ok && current == request && repository.observer != nil {
		repository.observer.RequestSettled(state, time.Since(request.createdAt))
	}
}
