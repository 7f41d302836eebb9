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
	"time"

	"github.com/Rican7/retry/strategy"

	"github.com/PelionIoT/devicegrid/transport"
	. "github.com/PelionIoT/devicegrid/xsite"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("RetryOnFailureXSiteCommand", func() {
	var siteTransport *MockSiteTransport
	var sender *BackupSender
	var backups []XSiteBackup

	BeforeEach(func() {
		siteTransport = NewMockSiteTransport()
		sender = NewBackupSender(siteTransport)
		backups = []XSiteBackup{{SiteName: "nyc", Sync: true, Timeout: time.Second}}
	})

	Describe("#Execute", func() {
		It("Should do nothing when there are no backups", func() {
			policy := NewMockRetryPolicy(true)
			command := NewRetryOnFailureXSiteCommand(nil, "put", policy)

			Expect(command.Execute(context.Background(), sender, time.Hour)).Should(Succeed())
			Expect(siteTransport.TotalCalls()).Should(Equal(0))
			Expect(policy.Causes()).Should(BeEmpty())
		})

		It("Should not consult the policy when the first attempt succeeds", func() {
			policy := NewMockRetryPolicy()
			command := NewRetryOnFailureXSiteCommand(backups, "put", policy)

			Expect(command.Execute(context.Background(), sender, 0)).Should(Succeed())
			Expect(siteTransport.Calls("nyc")).Should(Equal(1))
			Expect(policy.Causes()).Should(BeEmpty())
		})

		It("Should retry exactly N times with a max retries policy of N and then return the cause unwrapped", func() {
			cause := communicationError("nyc")
			siteTransport.defaultSendToSiteResponse = cause
			command := NewRetryOnFailureXSiteCommand(backups, "put", NewMaxRetriesPolicy(3))

			err := command.Execute(context.Background(), sender, time.Millisecond)

			Expect(err).Should(BeIdenticalTo(cause))
			Expect(siteTransport.Calls("nyc")).Should(Equal(4))
		})

		It("Should consult the policy after the first failure and hand it the transport of the sender", func() {
			cause := errors.New("rejected")
			siteTransport.defaultSendToSiteResponse = cause
			policy := NewMockRetryPolicy()
			command := NewRetryOnFailureXSiteCommand(backups, "put", policy)

			Expect(command.Execute(context.Background(), sender, 0)).Should(BeIdenticalTo(cause))
			Expect(policy.Causes()).Should(Equal([]error{cause}))
			Expect(policy.transports[0]).Should(BeIdenticalTo(siteTransport))
			Expect(siteTransport.Calls("nyc")).Should(Equal(1))
		})

		It("Should stop once an attempt succeeds", func() {
			attempts := 0
			siteTransport.sendToSiteCB = func(ctx context.Context, site string, command interface{}) (interface{}, error) {
				attempts++

				if attempts < 3 {
					return nil, communicationError(site)
				}

				return nil, nil
			}

			command := NewRetryOnFailureXSiteCommand(backups, "put", AlwaysRetryPolicy)

			Expect(command.Execute(context.Background(), sender, time.Millisecond)).Should(Succeed())
			Expect(siteTransport.Calls("nyc")).Should(Equal(3))
		})

		It("Should give up after the first failure with the no retry policy", func() {
			siteTransport.defaultSendToSiteResponse = errors.New("rejected")
			command := NewRetryOnFailureXSiteCommand(backups, "put", NoRetryPolicy)

			Expect(command.Execute(context.Background(), sender, time.Hour)).Should(MatchError("rejected"))
			Expect(siteTransport.Calls("nyc")).Should(Equal(1))
		})

		It("Should wait between retries", func() {
			siteTransport.defaultSendToSiteResponse = errors.New("rejected")
			command := NewRetryOnFailureXSiteCommand(backups, "put", NewMaxRetriesPolicy(2))
			start := time.Now()

			Expect(command.Execute(context.Background(), sender, time.Millisecond*50)).ShouldNot(Succeed())
			Expect(time.Since(start) >= time.Millisecond*100).Should(BeTrue())
		})

		It("Should hand the policy the cause of the failed site with the lowest name", func() {
			lonCause := errors.New("lon rejected")
			nycCause := errors.New("nyc rejected")
			siteTransport.sendToSiteCB = failingSites(map[string]error{"nyc": nycCause, "lon": lonCause})
			policy := NewMockRetryPolicy()
			command := NewRetryOnFailureXSiteCommand(append(backups, XSiteBackup{SiteName: "lon", Sync: true}), "put", policy)

			Expect(command.Execute(context.Background(), sender, 0)).Should(BeIdenticalTo(lonCause))
			Expect(policy.Causes()).Should(Equal([]error{lonCause}))
		})

		It("Should never retry because of asynchronous sites", func() {
			siteTransport.defaultSendToSiteResponse = errors.New("rejected")
			policy := NewMockRetryPolicy(true)
			command := NewRetryOnFailureXSiteCommand([]XSiteBackup{{SiteName: "tok"}}, "put", policy)

			Expect(command.Execute(context.Background(), sender, 0)).Should(Succeed())
			Expect(policy.Causes()).Should(BeEmpty())
		})

		It("Should return the context error when cancelled while waiting to retry", func() {
			siteTransport.defaultSendToSiteResponse = errors.New("rejected")
			ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
			defer cancel()

			command := NewRetryOnFailureXSiteCommand(backups, "put", AlwaysRetryPolicy)

			Expect(command.Execute(ctx, sender, time.Hour)).Should(Equal(context.DeadlineExceeded))
		})
	})
})

var _ = Describe("Retry policies", func() {
	Describe("MaxRetriesPolicy", func() {
		It("Should allow exactly the configured number of retries", func() {
			policy := NewMaxRetriesPolicy(2)

			Expect(policy.Retry(errors.New("a"), nil)).Should(BeTrue())
			Expect(policy.Retry(errors.New("b"), nil)).Should(BeTrue())
			Expect(policy.Retry(errors.New("c"), nil)).Should(BeFalse())
			Expect(policy.Retry(errors.New("d"), nil)).Should(BeFalse())
		})

		It("Should never retry with a budget of zero", func() {
			Expect(NewMaxRetriesPolicy(0).Retry(errors.New("a"), nil)).Should(BeFalse())
		})
	})

	Describe("StrategyPolicy", func() {
		It("Should number the first retry as attempt 1", func() {
			var attempts []uint

			policy := NewStrategyPolicy(func(attempt uint) bool {
				attempts = append(attempts, attempt)

				return attempt < 3
			})

			Expect(policy.Retry(errors.New("a"), nil)).Should(BeTrue())
			Expect(policy.Retry(errors.New("b"), nil)).Should(BeTrue())
			Expect(policy.Retry(errors.New("c"), nil)).Should(BeFalse())
			Expect(attempts).Should(Equal([]uint{1, 2, 3}))
		})

		It("Should stop as soon as one strategy refuses", func() {
			policy := NewStrategyPolicy(
				func(attempt uint) bool { return true },
				func(attempt uint) bool { return false },
			)

			Expect(policy.Retry(errors.New("a"), nil)).Should(BeFalse())
		})

		It("Should cap the total number of sends like retry.Retry does with strategy.Limit", func() {
			siteTransport := NewMockSiteTransport()
			siteTransport.defaultSendToSiteResponse = &transport.RejectedError{Site: "nyc", StatusCode: 500}
			command := NewRetryOnFailureXSiteCommand([]XSiteBackup{{SiteName: "nyc", Sync: true}}, "put", NewStrategyPolicy(strategy.Limit(3)))

			Expect(command.Execute(context.Background(), NewBackupSender(siteTransport), 0)).ShouldNot(Succeed())
			Expect(siteTransport.Calls("nyc")).Should(Equal(3))
		})
	})
})
