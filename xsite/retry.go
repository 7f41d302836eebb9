package xsite

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
	"sync/atomic"

	"github.com/Rican7/retry/strategy"

	"github.com/PelionIoT/devicegrid/transport"
)

// RetryPolicy decides after a failed attempt whether to try again. Policies
// with state must not be shared between executions.
type RetryPolicy interface {
	Retry(cause error, siteTransport transport.SiteTransport) bool
}

// MaxRetriesPolicy allows a fixed number of retries
type MaxRetriesPolicy struct {
	remaining int64
}

func NewMaxRetriesPolicy(maxRetries int) *MaxRetriesPolicy {
	return &MaxRetriesPolicy{remaining: int64(maxRetries)}
}

func (policy *MaxRetriesPolicy) Retry(cause error, siteTransport transport.SiteTransport) bool {
	return atomic.AddInt64(&policy.remaining, -1) >= 0
}

type noRetryPolicy struct{}

func (noRetryPolicy) Retry(cause error, siteTransport transport.SiteTransport) bool {
	return false
}

type alwaysRetryPolicy struct{}

func (alwaysRetryPolicy) Retry(cause error, siteTransport transport.SiteTransport) bool {
	return true
}

var NoRetryPolicy RetryPolicy = noRetryPolicy{}
var AlwaysRetryPolicy RetryPolicy = alwaysRetryPolicy{}

// StrategyPolicy retries as long as every strategy allows the next attempt.
// Attempts are numbered the way retry.Retry numbers them, so the first retry
// is attempt 1 and strategy.Limit(n) allows n-1 retries. Strategies that
// sleep, such as strategy.Backoff, delay the retry on top of the wait of the
// command.
type StrategyPolicy struct {
	strategies []strategy.Strategy
	attempt    uint32
}

func NewStrategyPolicy(strategies ...strategy.Strategy) *StrategyPolicy {
	return &StrategyPolicy{strategies: strategies}
}

func (policy *StrategyPolicy) Retry(cause error, siteTransport transport.SiteTransport) bool {
	attempt := uint(atomic.AddUint32(&policy.attempt, 1))

	for _, s := range policy.strategies {
		if !s(attempt) {
			return false
		}
	}

	return true
}
