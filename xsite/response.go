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
	"context"
	"sync"
	"time"

	"github.com/PelionIoT/devicegrid/transport"
)

// BackupResponse is the outcome of replicating one command to a set of
// sites. Only synchronous sites contribute to FailedBackups. Asynchronous
// outcomes are reported through NotifyAsyncAck.
type BackupResponse interface {
	// WaitForBackupToFinish blocks until every synchronous site succeeded or
	// failed. It only returns an error if ctx is done first.
	WaitForBackupToFinish(ctx context.Context) error
	FailedBackups() map[string]error
	// CommunicationErrors is the subset of FailedBackups whose cause is a
	// *transport.CommunicationError
	CommunicationErrors() map[string]struct{}
	SendTime() time.Time
	IsEmpty() bool
	IsSync(site string) bool
	NotifyFinish(listener TimeElapsedListener)
	NotifyAsyncAck(listener AsyncAckListener)
}

type asyncAck struct {
	site  string
	cause error
}

type siteBackupResponse struct {
	sendTime time.Time
	modes    map[string]bool

	mu                  sync.Mutex
	syncPending         int
	syncDone            chan struct{}
	elapsed             time.Duration
	failures            map[string]error
	communicationErrors map[string]struct{}
	finishListeners     []TimeElapsedListener
	acks                []asyncAck
	ackListeners        []AsyncAckListener
}

func newSiteBackupResponse(sendTime time.Time, backups []XSiteBackup) *siteBackupResponse {
	response := &siteBackupResponse{
		sendTime:            sendTime,
		modes:               make(map[string]bool, len(backups)),
		syncDone:            make(chan struct{}),
		failures:            make(map[string]error),
		communicationErrors: make(map[string]struct{}),
	}

	for _, backup := range backups {
		response.modes[backup.SiteName] = backup.Sync

		if backup.Sync {
			response.syncPending++
		}
	}

	if response.syncPending == 0 {
		close(response.syncDone)
	}

	return response
}

func (response *siteBackupResponse) WaitForBackupToFinish(ctx context.Context) error {
	select {
	case <-response.syncDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (response *siteBackupResponse) FailedBackups() map[string]error {
	response.mu.Lock()
	defer response.mu.Unlock()

	failures := make(map[string]error, len(response.failures))

	for site, cause := range response.failures {
		failures[site] = cause
	}

	return failures
}

func (response *siteBackupResponse) CommunicationErrors() map[string]struct{} {
	response.mu.Lock()
	defer response.mu.Unlock()

	communicationErrors := make(map[string]struct{}, len(response.communicationErrors))

	for site := range response.communicationErrors {
		communicationErrors[site] = struct{}{}
	}

	return communicationErrors
}

func (response *siteBackupResponse) SendTime() time.Time {
	return response.sendTime
}

func (response *siteBackupResponse) IsEmpty() bool {
	response.mu.Lock()
	defer response.mu.Unlock()

	return len(response.failures) == 0
}

func (response *siteBackupResponse) IsSync(site string) bool {
	return response.modes[site]
}

func (response *siteBackupResponse) NotifyFinish(listener TimeElapsedListener) {
	response.mu.Lock()

	if response.syncPending != 0 {
		response.finishListeners = append(response.finishListeners, listener)
		response.mu.Unlock()

		return
	}

	elapsed := response.elapsed
	response.mu.Unlock()

	listener(elapsed)
}

// NotifyAsyncAck replays the acknowledgments received so far before
// listening for the rest so every asynchronous site is reported once
func (response *siteBackupResponse) NotifyAsyncAck(listener AsyncAckListener) {
	response.mu.Lock()
	acks := append([]asyncAck{}, response.acks...)
	response.ackListeners = append(response.ackListeners, listener)
	response.mu.Unlock()

	for _, ack := range acks {
		listener(response.sendTime, ack.site, ack.cause)
	}
}

func (response *siteBackupResponse) complete(backup XSiteBackup, cause error) {
	response.mu.Lock()

	if !backup.Sync {
		response.acks = append(response.acks, asyncAck{site: backup.SiteName, cause: cause})
		listeners := append([]AsyncAckListener{}, response.ackListeners...)
		response.mu.Unlock()

		for _, listener := range listeners {
			listener(response.sendTime, backup.SiteName, cause)
		}

		return
	}

	if cause != nil {
		response.failures[backup.SiteName] = cause

		if transport.IsCommunicationError(cause) {
			response.communicationErrors[backup.SiteName] = struct{}{}
		}
	}

	response.syncPending--

	if response.syncPending != 0 {
		response.mu.Unlock()

		return
	}

	response.elapsed = time.Since(response.sendTime)
	elapsed := response.elapsed
	listeners := response.finishListeners
	response.finishListeners = nil
	close(response.syncDone)
	response.mu.Unlock()

	for _, listener := range listeners {
		listener(elapsed)
	}
}
