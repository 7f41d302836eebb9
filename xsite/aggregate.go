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
	"sync/atomic"
	"time"
)

// AggregateBackupResponse presents the phases of a multi-phase replication
// as one BackupResponse over the union of their sites
type AggregateBackupResponse struct {
	responses []BackupResponse
}

func NewAggregateBackupResponse(first BackupResponse, second BackupResponse) *AggregateBackupResponse {
	aggregate := &AggregateBackupResponse{}

	for _, response := range []BackupResponse{first, second} {
		if response != nil {
			aggregate.responses = append(aggregate.responses, response)
		}
	}

	return aggregate
}

func (aggregate *AggregateBackupResponse) WaitForBackupToFinish(ctx context.Context) error {
	for _, response := range aggregate.responses {
		if err := response.WaitForBackupToFinish(ctx); err != nil {
			return err
		}
	}

	return nil
}

// FailedBackups reports the cause from the latest phase when a site failed
// in more than one
func (aggregate *AggregateBackupResponse) FailedBackups() map[string]error {
	failures := make(map[string]error)

	for _, response := range aggregate.responses {
		for site, cause := range response.FailedBackups() {
			failures[site] = cause
		}
	}

	return failures
}

func (aggregate *AggregateBackupResponse) CommunicationErrors() map[string]struct{} {
	communicationErrors := make(map[string]struct{})

	for _, response := range aggregate.responses {
		for site := range response.CommunicationErrors() {
			communicationErrors[site] = struct{}{}
		}
	}

	return communicationErrors
}

// SendTime is the earliest send time among the phases
func (aggregate *AggregateBackupResponse) SendTime() time.Time {
	var sendTime time.Time

	for _, response := range aggregate.responses {
		if sendTime.IsZero() || response.SendTime().Before(sendTime) {
			sendTime = response.SendTime()
		}
	}

	return sendTime
}

func (aggregate *AggregateBackupResponse) IsEmpty() bool {
	for _, response := range aggregate.responses {
		if !response.IsEmpty() {
			return false
		}
	}

	return true
}

func (aggregate *AggregateBackupResponse) IsSync(site string) bool {
	for _, response := range aggregate.responses {
		if response.IsSync(site) {
			return true
		}
	}

	return false
}

// NotifyFinish calls listener once, after every phase finished, with the time
// elapsed since the earliest send
func (aggregate *AggregateBackupResponse) NotifyFinish(listener TimeElapsedListener) {
	remaining := int32(len(aggregate.responses))

	if remaining == 0 {
		listener(0)

		return
	}

	sendTime := aggregate.SendTime()

	for _, response := range aggregate.responses {
		response.NotifyFinish(func(time.Duration) {
			if atomic.AddInt32(&remaining, -1) == 0 {
				listener(time.Since(sendTime))
			}
		})
	}
}

func (aggregate *AggregateBackupResponse) NotifyAsyncAck(listener AsyncAckListener) {
	for _, response := range aggregate.responses {
		response.NotifyAsyncAck(listener)
	}
}
