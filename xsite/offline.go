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
	"sync"
	"time"

	. "github.com/PelionIoT/devicegrid/logging"
)

// TakeOfflineConfig decides when a failing site stops receiving backups.
// With both fields set a site goes offline once it failed AfterFailures times
// in a row and the first of those failures is at least MinTimeToWait old.
// With only one set, only that condition applies. With neither set the site
// is never taken offline automatically.
type TakeOfflineConfig struct {
	AfterFailures int
	MinTimeToWait time.Duration
}

func (config TakeOfflineConfig) Enabled() bool {
	return config.AfterFailures > 0 || config.MinTimeToWait > 0
}

type OfflineStatus struct {
	site   string
	config TakeOfflineConfig

	mu           sync.Mutex
	offline      bool
	failureCount int
	firstFailure time.Time
}

func NewOfflineStatus(site string, config TakeOfflineConfig) *OfflineStatus {
	return &OfflineStatus{
		site:   site,
		config: config,
	}
}

func (status *OfflineStatus) Site() string {
	return status.site
}

func (status *OfflineStatus) Config() TakeOfflineConfig {
	return status.config
}

func (status *OfflineStatus) IsOffline() bool {
	status.mu.Lock()
	defer status.mu.Unlock()

	return status.offline
}

func (status *OfflineStatus) FailureCount() int {
	status.mu.Lock()
	defer status.mu.Unlock()

	return status.failureCount
}

// RecordFailure counts a failed backup that happened at now. It returns true
// if this failure took the site offline.
func (status *OfflineStatus) RecordFailure(now time.Time) bool {
	status.mu.Lock()
	defer status.mu.Unlock()

	if status.offline {
		return false
	}

	if status.failureCount == 0 {
		status.firstFailure = now
	}

	status.failureCount++

	if !status.config.Enabled() {
		return false
	}

	if status.config.AfterFailures > 0 && status.failureCount < status.config.AfterFailures {
		return false
	}

	if status.config.MinTimeToWait > 0 && now.Sub(status.firstFailure) < status.config.MinTimeToWait {
		return false
	}

	status.offline = true

	Log.Warningf("Taking site %s offline after %d consecutive failures since %v", status.site, status.failureCount, status.firstFailure)

	return true
}

// Reset is called after a successful backup
func (status *OfflineStatus) Reset() {
	status.mu.Lock()
	defer status.mu.Unlock()

	status.failureCount = 0
	status.firstFailure = time.Time{}
}

// BringOnline returns false if the site was already online
func (status *OfflineStatus) BringOnline() bool {
	status.mu.Lock()
	defer status.mu.Unlock()

	if !status.offline {
		return false
	}

	Log.Infof("Bringing site %s back online", status.site)

	status.offline = false
	status.failureCount = 0
	status.firstFailure = time.Time{}

	return true
}

// TakeOffline returns false if the site was already offline
func (status *OfflineStatus) TakeOffline() bool {
	status.mu.Lock()
	defer status.mu.Unlock()

	if status.offline {
		return false
	}

	Log.Infof("Taking site %s offline", status.site)

	status.offline = true

	return true
}
