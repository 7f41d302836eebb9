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
	"fmt"
	"time"

	. "github.com/PelionIoT/devicegrid/error"
)

// XSiteBackup describes one remote site a command is replicated to
type XSiteBackup struct {
	SiteName string
	// Sync backups block the caller until the site applied the command
	Sync bool
	// Zero means no deadline besides the one of the caller's context
	Timeout time.Duration
}

func (backup XSiteBackup) String() string {
	mode := "async"

	if backup.Sync {
		mode = "sync"
	}

	return fmt.Sprintf("%s (%s)", backup.SiteName, mode)
}

// TimeElapsedListener is told how long the synchronous part of a backup took
type TimeElapsedListener func(elapsed time.Duration)

// AsyncAckListener receives the outcome of one asynchronous site. cause is
// nil on success.
type AsyncAckListener func(sendTime time.Time, site string, cause error)

// SiteCompletedListener is called once per site and backup, sync or async
type SiteCompletedListener func(backup XSiteBackup, sendTime time.Time, duration time.Duration, cause error)

// SiteTimeoutError means a site did not answer before its backup timeout
type SiteTimeoutError struct {
	Site    string
	Timeout time.Duration
}

func (e *SiteTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %v waiting for site %s", e.Timeout, e.Site)
}

func (e *SiteTimeoutError) Is(target error) bool {
	return target == ETimeout
}
