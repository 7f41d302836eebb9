package xsite_test

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
	"errors"
	"sync/atomic"
	"time"

	. "github.com/PelionIoT/devicegrid/xsite"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("AggregateBackupResponse", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Now()
	})

	Describe("#IsEmpty", func() {
		It("Should be empty only if both phases are empty", func() {
			empty := &FixedBackupResponse{sendTime: now}
			cause := errors.New("rejected")
			failed := &FixedBackupResponse{sendTime: now, failures: map[string]error{"lon": cause}}

			Expect(NewAggregateBackupResponse(empty, &FixedBackupResponse{sendTime: now}).IsEmpty()).Should(BeTrue())

			aggregate := NewAggregateBackupResponse(empty, failed)

			Expect(aggregate.IsEmpty()).Should(BeFalse())
			Expect(aggregate.FailedBackups()).Should(Equal(failed.FailedBackups()))
		})
	})

	Describe("accessors", func() {
		It("Should present the union of both phases", func() {
			first := &FixedBackupResponse{
				sendTime: now.Add(-time.Second),
				failures: map[string]error{"nyc": communicationError("nyc")},
				sync:     map[string]bool{"nyc": true},
			}
			second := &FixedBackupResponse{
				sendTime: now,
				failures: map[string]error{"lon": errors.New("rejected")},
				sync:     map[string]bool{"lon": true, "tok": false},
			}
			aggregate := NewAggregateBackupResponse(first, second)

			Expect(aggregate.FailedBackups()).Should(HaveLen(2))
			Expect(aggregate.FailedBackups()).Should(HaveKey("nyc"))
			Expect(aggregate.FailedBackups()).Should(HaveKey("lon"))
			Expect(aggregate.CommunicationErrors()).Should(Equal(map[string]struct{}{"nyc": struct{}{}}))
			Expect(aggregate.SendTime()).Should(Equal(now.Add(-time.Second)))
			Expect(aggregate.IsSync("nyc")).Should(BeTrue())
			Expect(aggregate.IsSync("lon")).Should(BeTrue())
			Expect(aggregate.IsSync("tok")).Should(BeFalse())
			Expect(aggregate.WaitForBackupToFinish(context.Background())).Should(Succeed())
		})

		It("Should forward asynchronous acknowledgments of both phases", func() {
			first := &FixedBackupResponse{sendTime: now, sync: map[string]bool{"tok": false}}
			second := &FixedBackupResponse{sendTime: now, sync: map[string]bool{"osa": false}}
			recorder := &AckRecorder{}

			NewAggregateBackupResponse(first, second).NotifyAsyncAck(recorder.OnAck)

			Expect(recorder.Acks()).Should(ConsistOf(ackRecord{"tok", nil}, ackRecord{"osa", nil}))
		})
	})

	Describe("#NotifyFinish", func() {
		It("Should call the listener once after both real phases finished", func() {
			siteTransport := NewMockSiteTransport()
			release := make(chan struct{})
			siteTransport.sendToSiteCB = func(ctx context.Context, site string, command interface{}) (interface{}, error) {
				if site == "lon" {
					<-release
				}

				return nil, nil
			}

			sender := NewBackupSender(siteTransport)
			prepare := sender.Backup(context.Background(), []XSiteBackup{{SiteName: "nyc", Sync: true}}, "prepare")
			commit := sender.Backup(context.Background(), []XSiteBackup{{SiteName: "lon", Sync: true}}, "commit")
			aggregate := NewAggregateBackupResponse(prepare, commit)

			var calls int32

			aggregate.NotifyFinish(func(time.Duration) {
				atomic.AddInt32(&calls, 1)
			})

			Expect(prepare.WaitForBackupToFinish(context.Background())).Should(Succeed())
			Consistently(func() int32 { return atomic.LoadInt32(&calls) }, time.Millisecond*50).Should(Equal(int32(0)))

			close(release)

			Expect(aggregate.WaitForBackupToFinish(context.Background())).Should(Succeed())
			Eventually(func() int32 { return atomic.LoadInt32(&calls) }).Should(Equal(int32(1)))
			Expect(aggregate.IsEmpty()).Should(BeTrue())
		})

		It("Should ignore a missing phase", func() {
			aggregate := NewAggregateBackupResponse(nil, &FixedBackupResponse{sendTime: now})

			var calls int32

			aggregate.NotifyFinish(func(time.Duration) {
				atomic.AddInt32(&calls, 1)
			})

			Expect(calls).Should(Equal(int32(1)))
			Expect(aggregate.SendTime()).Should(Equal(now))
		})
	})
})
