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
	"time"

	. "github.com/PelionIoT/devicegrid/logging"
)

// RetryOnFailureXSiteCommand replicates a command and repeats the whole
// backup while its policy allows it
type RetryOnFailureXSiteCommand struct {
	Backups []XSiteBackup
	Command interface{}
	Policy  RetryPolicy
}

func NewRetryOnFailureXSiteCommand(backups []XSiteBackup, command interface{}, policy RetryPolicy) *RetryOnFailureXSiteCommand {
	return &RetryOnFailureXSiteCommand{
		Backups: backups,
		Command: command,
		Policy:  policy,
	}
}

// Execute returns nil once an attempt has no failed site. Otherwise the
// policy is asked after each failed attempt, the first one included, and
// waitBetweenRetries passes before the next. When the policy gives up the
// cause of the failed site with the lowest name is returned as is. A command
// without backups succeeds right away.
func (command *RetryOnFailureXSiteCommand) Execute(ctx context.Context, sender *BackupSender, waitBetweenRetries time.Duration) error {
	if len(command.Backups) == 0 {
		Log.Debugf("No backups configured. Nothing to replicate")

		return nil
	}

	for attempt := 1; ; attempt++ {
		response := sender.Backup(ctx, command.Backups, command.Command)

		if err := response.WaitForBackupToFinish(ctx); err != nil {
			return err
		}

		site, cause := firstFailure(response.FailedBackups())

		if cause == nil {
			return nil
		}

		if command.Policy == nil || !command.Policy.Retry(cause, sender.Transport()) {
			Log.Warningf("Giving up on replication after %d attempts. Site %s failed with %v", attempt, site, cause)

			return cause
		}

		Log.Infof("Attempt %d to replicate failed at site %s: %v. Retrying in %v", attempt, site, cause, waitBetweenRetries)

		select {
		case <-time.After(waitBetweenRetries):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func firstFailure(failures map[string]error) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}

	sites := make([]string, 0, len(failures))

	for site := range failures {
		sites = append(sites, site)
	}

	sort.Strings(sites)

	return sites[0], failures[sites[0]]
}
