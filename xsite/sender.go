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
	"sort"
	"sync"
	"time"

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/transport"
)

// BackupSender replicates commands to remote sites over a site transport.
// Every site is sent to from its own goroutine so a slow site never delays
// the others.
type BackupSender struct {
	siteTransport transport.SiteTransport

	mu        sync.RWMutex
	statuses  map[string]*OfflineStatus
	journal   FailureJournal
	listeners []SiteCompletedListener
}

func NewBackupSender(siteTransport transport.SiteTransport) *BackupSender {
	return &BackupSender{
		siteTransport: siteTransport,
		statuses:      make(map[string]*OfflineStatus),
	}
}

func (sender *BackupSender) Transport() transport.SiteTransport {
	return sender.siteTransport
}

func (sender *BackupSender) SetFailureJournal(journal FailureJournal) {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	sender.journal = journal
}

func (sender *BackupSender) AddSiteCompletedListener(listener SiteCompletedListener) {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	sender.listeners = append(sender.listeners, listener)
}

// SetTakeOffline replaces the take offline configuration of site. The site
// comes back online if it was offline.
func (sender *BackupSender) SetTakeOffline(site string, config TakeOfflineConfig) {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	sender.statuses[site] = NewOfflineStatus(site, config)
}

func (sender *BackupSender) OfflineStatus(site string) (*OfflineStatus, bool) {
	sender.mu.RLock()
	defer sender.mu.RUnlock()

	status, ok := sender.statuses[site]

	return status, ok
}

// Sites lists the sites that have an offline status
func (sender *BackupSender) Sites() []string {
	sender.mu.RLock()
	defer sender.mu.RUnlock()

	sites := make([]string, 0, len(sender.statuses))

	for site := range sender.statuses {
		sites = append(sites, site)
	}

	sort.Strings(sites)

	return sites
}

func (sender *BackupSender) BringOnline(site string) (bool, error) {
	status, err := sender.status(site)

	if err != nil {
		return false, err
	}

	return status.BringOnline(), nil
}

func (sender *BackupSender) TakeOffline(site string) (bool, error) {
	status, err := sender.status(site)

	if err != nil {
		return false, err
	}

	return status.TakeOffline(), nil
}

func (sender *BackupSender) status(site string) (*OfflineStatus, error) {
	status, ok := sender.OfflineStatus(site)

	if !ok {
		return nil, EUnknownSite
	}

	return status, nil
}

// Backup sends command to every site in backups that is not offline and
// returns right away. Synchronous sites honour ctx. Asynchronous sites are
// bounded only by their own timeout since the caller does not wait for them.
func (sender *BackupSender) Backup(ctx context.Context, backups []XSiteBackup, command interface{}) BackupResponse {
	targets := make([]XSiteBackup, 0, len(backups))
	seen := make(map[string]bool, len(backups))

	for _, backup := range backups {
		if seen[backup.SiteName] {
			Log.Warningf("Site %s is listed more than once. Only its first backup is used", backup.SiteName)

			continue
		}

		seen[backup.SiteName] = true

		if status, ok := sender.OfflineStatus(backup.SiteName); ok && status.IsOffline() {
			Log.Debugf("Skipping backup to site %s since it is offline", backup.SiteName)

			continue
		}

		targets = append(targets, backup)
	}

	sendTime := time.Now()
	response := newSiteBackupResponse(sendTime, targets)

	for _, backup := range targets {
		siteCtx := ctx

		if !backup.Sync {
			siteCtx = context.Background()
		}

		go func(siteCtx context.Context, backup XSiteBackup) {
			start := time.Now()
			cause := sender.send(siteCtx, backup, command)

			sender.siteCompleted(backup, start, time.Since(start), cause)
			response.complete(backup, cause)
		}(siteCtx, backup)
	}

	return response
}

func (sender *BackupSender) send(ctx context.Context, backup XSiteBackup, command interface{}) error {
	siteCtx := ctx
	cancel := func() {}

	if backup.Timeout > 0 {
		siteCtx, cancel = context.WithTimeout(ctx, backup.Timeout)
	}

	defer cancel()

	result := make(chan error, 1)

	go func() {
		_, err := sender.siteTransport.SendToSite(siteCtx, backup.SiteName, command)

		result <- err
	}()

	var err error

	select {
	case err = <-result:
	case <-siteCtx.Done():
		err = siteCtx.Err()
	}

	if err != nil && backup.Timeout > 0 && siteCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return &SiteTimeoutError{Site: backup.SiteName, Timeout: backup.Timeout}
	}

	return err
}

func (sender *BackupSender) siteCompleted(backup XSiteBackup, sendTime time.Time, duration time.Duration, cause error) {
	sender.mu.RLock()
	status := sender.statuses[backup.SiteName]
	journal := sender.journal
	listeners := sender.listeners
	sender.mu.RUnlock()

	if cause == nil {
		if status != nil {
			status.Reset()
		}
	} else {
		if backup.Sync {
			Log.Errorf("Backup to site %v failed after %v: %v", backup, duration, cause)
		} else {
			Log.Warningf("Backup to site %v failed after %v: %v", backup, duration, cause)
		}

		if status != nil {
			status.RecordFailure(time.Now())
		}

		if journal != nil {
			err := journal.Record(FailureRecord{
				Site:          backup.SiteName,
				Sync:          backup.Sync,
				SendTime:      sendTime,
				Duration:      duration,
				Communication: transport.IsCommunicationError(cause),
				Message:       cause.Error(),
			})

			if err != nil {
				Log.Errorf("Unable to journal failed backup to site %s: %v", backup.SiteName, err)
			}
		}
	}

	for _, listener := range listeners {
		listener(backup, sendTime, duration, cause)
	}
}
