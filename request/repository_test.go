package request_test

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
	"sync"
	"time"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/collector"
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/request"
	"github.com/PelionIoT/devicegrid/response"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Repository", func() {
	var repository *Repository
	var observer *CountingObserver
	var scheduler *MockScheduler

	BeforeEach(func() {
		repository = NewRepository()
		observer = &CountingObserver{}
		repository.SetObserver(observer)
		scheduler = NewMockScheduler()
	})

	Describe("#NewRequest", func() {
		It("Should allocate a distinct id for every request and register it", func() {
			targets := members(1)
			ids := make(map[uint64]bool)

			for i := 0; i < 100; i++ {
				request := repository.NewRequest(&RecordingCollector{}, targets)

				Expect(ids).ShouldNot(HaveKey(request.ID()))
				ids[request.ID()] = true

				registered, ok := repository.Get(request.ID())

				Expect(ok).Should(BeTrue())
				Expect(registered).Should(BeIdenticalTo(request))
				Expect(request.State()).Should(Equal(StateAwaitingResponses))
			}

			Expect(repository.Len()).Should(Equal(100))
			Expect(observer.Registered()).Should(Equal(100))
		})

		It("Should settle a request without destinations with the result of Finish", func() {
			recordingCollector := &RecordingCollector{}
			request := repository.NewRequest(recordingCollector, nil)

			Expect(request.IsDone()).Should(BeTrue())
			Expect(recordingCollector.finishCalls).Should(Equal(1))
			Expect(repository.Len()).Should(Equal(0))

			result, err := request.Wait(context.Background())

			Expect(result).Should(Equal(0))
			Expect(err).Should(BeNil())
		})
	})

	Describe("#OnResponse", func() {
		It("Should complete the request with the value the collector returned and deregister it", func() {
			targets := members(2)
			request := repository.NewRequest(collector.NewClusteredReadCollector(), targets)

			repository.OnResponse(request.ID(), targets[1], response.ValidResponse{Value: "v"})

			result, err := request.Get(time.Second)

			Expect(result).Should(Equal("v"))
			Expect(err).Should(BeNil())
			Expect(request.State()).Should(Equal(StateCompleted))
			Expect(repository.Len()).Should(Equal(0))
			Expect(observer.Settled()).Should(Equal(1))
		})

		It("Should call Finish once every destination replied without a result", func() {
			targets := members(3)
			recordingCollector := &RecordingCollector{}
			request := repository.NewRequest(recordingCollector, targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)
			repository.OnResponse(request.ID(), targets[2], response.TargetNotFound)

			Expect(request.IsDone()).Should(BeFalse())
			Expect(recordingCollector.finishCalls).Should(Equal(0))

			repository.OnResponse(request.ID(), targets[1], response.Unsure)

			Expect(request.IsDone()).Should(BeTrue())
			Expect(recordingCollector.finishCalls).Should(Equal(1))

			result, _ := request.Wait(context.Background())

			Expect(result).Should(Equal(3))
		})

		It("Should ignore duplicate replies and replies from members that are not destinations", func() {
			targets := members(2)
			recordingCollector := &RecordingCollector{}
			request := repository.NewRequest(recordingCollector, targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)
			repository.OnResponse(request.ID(), targets[0], response.Unsure)
			repository.OnResponse(request.ID(), address.New(), response.Unsure)

			Expect(recordingCollector.calls).Should(HaveLen(1))
			Expect(request.IsDone()).Should(BeFalse())
			Expect(request.Pending()).Should(Equal([]address.Address{targets[1]}))
		})

		It("Should stop calling the collector once it reported a result", func() {
			targets := members(3)
			recordingCollector := &RecordingCollector{
				doneOn: func(sender address.Address, r response.Response) bool {
					return r.Kind() == response.KindValid
				},
			}
			request := repository.NewRequest(recordingCollector, targets)

			repository.OnResponse(request.ID(), targets[1], response.ValidResponse{Value: "v"})
			repository.OnResponse(request.ID(), targets[0], response.ValidResponse{Value: "w"})
			repository.OnResponse(request.ID(), targets[2], response.ValidResponse{Value: "x"})

			Expect(recordingCollector.calls).Should(HaveLen(1))
			Expect(recordingCollector.calls[0].sender.Equals(targets[1])).Should(BeTrue())
			Expect(recordingCollector.finishCalls).Should(Equal(0))

			result, err := request.Wait(context.Background())

			Expect(result).Should(Equal(response.ValidResponse{Value: "v"}))
			Expect(err).Should(BeNil())
		})

		It("Should treat a reply for a settled request as a no-op", func() {
			targets := members(1)
			request := repository.NewRequest(collector.NewValidSingleResponseCollector(), targets)

			repository.OnResponse(request.ID(), targets[0], response.ValidResponse{Value: 1})

			Expect(func() {
				repository.OnResponse(request.ID(), targets[0], response.ValidResponse{Value: 2})
				repository.OnResponse(request.ID()+1000, targets[0], response.ValidResponse{Value: 3})
			}).ShouldNot(Panic())

			result, err := request.Wait(context.Background())

			Expect(result).Should(Equal(1))
			Expect(err).Should(BeNil())
			Expect(repository.Len()).Should(Equal(0))
			Expect(observer.Settled()).Should(Equal(1))
		})

		It("Should fail the request with the collector error wrapped in a completion error", func() {
			targets := members(1)
			cause := errors.New("collector failure")
			request := repository.NewRequest(&RecordingCollector{err: cause}, targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)

			_, err := request.Wait(context.Background())

			var completionError *CompletionError

			Expect(errors.As(err, &completionError)).Should(BeTrue())
			Expect(completionError.Cause).Should(Equal(cause))
			Expect(request.State()).Should(Equal(StateFailed))
		})

		It("Should not wrap an error that already is a completion error", func() {
			targets := members(1)
			cause := &CompletionError{Cause: errors.New("x")}
			request := repository.NewRequest(&RecordingCollector{err: cause}, targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)

			_, err := request.Wait(context.Background())

			Expect(err).Should(BeIdenticalTo(cause))
		})

		It("Should fail the request when Finish returns an error", func() {
			targets := members(1)
			request := repository.NewRequest(collector.NewQuorumCollector(1), targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)

			_, err := request.Wait(context.Background())

			Expect(errors.Is(err, ENoQuorum)).Should(BeTrue())
		})

		It("Should fail the request when the collector panics", func() {
			targets := members(1)
			request := repository.NewRequest(&RecordingCollector{panicValue: "bad state"}, targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)

			_, err := request.Wait(context.Background())

			Expect(err).Should(HaveOccurred())
			Expect(repository.Len()).Should(Equal(0))
		})

		It("Should never call the collector concurrently for the same request", func() {
			targets := members(50)
			recordingCollector := &RecordingCollector{}
			request := repository.NewRequest(recordingCollector, targets)
			var wg sync.WaitGroup

			for _, target := range targets {
				wg.Add(1)

				go func(target address.Address) {
					defer wg.Done()

					repository.OnResponse(request.ID(), target, response.Unsure)
				}(target)
			}

			wg.Wait()

			Expect(recordingCollector.overlapped).Should(Equal(int32(0)))
			Expect(recordingCollector.calls).Should(HaveLen(50))
			Expect(recordingCollector.finishCalls).Should(Equal(1))

			result, err := request.Wait(context.Background())

			Expect(result).Should(Equal(50))
			Expect(err).Should(BeNil())
		})

		It("Should gather every reply when using the gather-all collector", func() {
			targets := members(3)
			request := repository.NewRequest(collector.NewMapResponseCollector(3), targets)
			cause := errors.New("boom")

			repository.OnResponse(request.ID(), targets[2], response.ValidResponse{Value: "c"})
			repository.OnResponse(request.ID(), targets[0], response.ExceptionResponse{Cause: cause})
			repository.OnResponse(request.ID(), targets[1], response.Unsure)

			result, err := request.Wait(context.Background())

			Expect(err).Should(BeNil())

			responses := result.(map[address.Key]collector.SenderResponse)

			Expect(responses).Should(HaveLen(3))
			Expect(responses[targets[0].Key()].Response).Should(Equal(response.ExceptionResponse{Cause: cause}))
			Expect(responses[targets[1].Key()].Response).Should(Equal(response.Unsure))
			Expect(responses[targets[2].Key()].Response).Should(Equal(response.ValidResponse{Value: "c"}))
		})
	})

	Describe("#OnMembershipChange", func() {
		It("Should synthesize TargetNotFound for destinations that left", func() {
			targets := members(2)
			recordingCollector := &RecordingCollector{}
			request := repository.NewRequest(recordingCollector, targets)

			repository.OnMembershipChange([]address.Address{targets[0], address.New()})

			Expect(recordingCollector.calls).Should(HaveLen(1))
			Expect(recordingCollector.calls[0].sender.Equals(targets[1])).Should(BeTrue())
			Expect(recordingCollector.calls[0].response).Should(Equal(response.TargetNotFound))
			Expect(request.Pending()).Should(Equal([]address.Address{targets[0]}))
		})

		It("Should settle a request once its last pending destination left", func() {
			targets := members(2)
			request := repository.NewRequest(collector.NewClusteredReadCollector(), targets)

			repository.OnResponse(request.ID(), targets[0], response.Unsure)
			repository.OnMembershipChange([]address.Address{targets[0]})

			result, err := request.Get(time.Second)

			Expect(result).Should(Equal(collector.UnsureResult))
			Expect(err).Should(BeNil())
		})

		It("Should fail a single destination request whose destination left", func() {
			targets := members(1)
			request := repository.NewRequest(collector.NewValidSingleResponseCollector(), targets)

			repository.OnMembershipChange(nil)

			_, err := request.Get(time.Second)

			Expect(errors.Is(err, ESuspect)).Should(BeTrue())
		})
	})

	Describe("#SetTimeout", func() {
		It("Should fail the request with a timeout error when it fires first", func() {
			targets := members(2)
			request := repository.NewRequest(&RecordingCollector{}, targets)

			request.SetTimeout(scheduler, time.Second*5)
			repository.OnResponse(request.ID(), targets[0], response.Unsure)
			scheduler.Fire()

			_, err := request.Wait(context.Background())

			var timeoutError *TimeoutError

			Expect(errors.As(err, &timeoutError)).Should(BeTrue())
			Expect(errors.Is(err, ETimeout)).Should(BeTrue())
			Expect(timeoutError.Timeout).Should(Equal(time.Second * 5))
			Expect(timeoutError.Pending).Should(Equal([]address.Address{targets[1]}))
			Expect(request.State()).Should(Equal(StateFailed))
			Expect(repository.Len()).Should(Equal(0))
		})

		It("Should cancel the timeout task when the request completes first", func() {
			targets := members(1)
			request := repository.NewRequest(collector.NewValidSingleResponseCollector(), targets)

			request.SetTimeout(scheduler, time.Second)
			repository.OnResponse(request.ID(), targets[0], response.ValidResponse{Value: "v"})

			Expect(scheduler.Tasks()[0].IsCancelled()).Should(BeTrue())
		})

		It("Should be a no-op when a timeout that could not be cancelled fires after completion", func() {
			targets := members(1)
			request := repository.NewRequest(collector.NewValidSingleResponseCollector(), targets)

			request.SetTimeout(scheduler, time.Second)
			repository.OnResponse(request.ID(), targets[0], response.ValidResponse{Value: "v"})
			scheduler.Fire()

			result, err := request.Wait(context.Background())

			Expect(result).Should(Equal("v"))
			Expect(err).Should(BeNil())
			Expect(request.State()).Should(Equal(StateCompleted))
			Expect(observer.Settled()).Should(Equal(1))
		})

		It("Should cancel the new task right away if the request already settled", func() {
			request := repository.NewRequest(&RecordingCollector{}, nil)

			request.SetTimeout(scheduler, time.Second)

			Expect(scheduler.Tasks()[0].IsCancelled()).Should(BeTrue())
		})

		It("Should work with timers", func() {
			request := repository.NewRequest(&RecordingCollector{}, members(1))

			request.SetTimeout(NewTimerScheduler(), time.Millisecond*10)

			Eventually(request.Done()).Should(BeClosed())

			_, err := request.Wait(context.Background())

			Expect(errors.Is(err, ETimeout)).Should(BeTrue())
		})
	})

	Describe("#Cancel", func() {
		It("Should cancel the request and deregister it", func() {
			request := repository.NewRequest(&RecordingCollector{}, members(1))
			cause := errors.New("caller gave up")

			Expect(request.Cancel(cause)).Should(BeTrue())
			Expect(request.Cancel(cause)).Should(BeFalse())

			_, err := request.Wait(context.Background())

			Expect(errors.Is(err, ECancelled)).Should(BeTrue())
			Expect(errors.Is(err, cause)).Should(BeTrue())
			Expect(request.State()).Should(Equal(StateCancelled))
			Expect(repository.Len()).Should(Equal(0))
		})

		It("Should cancel every registered request when CancelAll is called", func() {
			first := repository.NewRequest(&RecordingCollector{}, members(1))
			second := repository.NewRequest(&RecordingCollector{}, members(2))

			repository.CancelAll(EClosed)

			Expect(first.State()).Should(Equal(StateCancelled))
			Expect(second.State()).Should(Equal(StateCancelled))
			Expect(repository.Len()).Should(Equal(0))
		})
	})

	Describe("settlement races", func() {
		It("Should settle exactly once when a reply, a timeout and a cancellation race", func() {
			for i := 0; i < 200; i++ {
				targets := members(1)
				request := repository.NewRequest(collector.NewValidSingleResponseCollector(), targets)
				request.SetTimeout(scheduler, time.Second)

				var observed []string
				var observedMu sync.Mutex

				for j := 0; j < 3; j++ {
					request.WhenComplete(func(result interface{}, err error) {
						observedMu.Lock()
						defer observedMu.Unlock()

						observed = append(observed, request.State().String())
					})
				}

				var wg sync.WaitGroup
				wg.Add(3)

				go func() {
					defer wg.Done()
					repository.OnResponse(request.ID(), targets[0], response.ValidResponse{Value: "v"})
				}()

				go func() {
					defer wg.Done()
					scheduler.Fire()
				}()

				go func() {
					defer wg.Done()
					request.Cancel(nil)
				}()

				wg.Wait()

				result, err := request.Wait(context.Background())

				switch request.State() {
				case StateCompleted:
					Expect(result).Should(Equal("v"))
					Expect(err).Should(BeNil())
				case StateFailed:
					Expect(errors.Is(err, ETimeout)).Should(BeTrue())
				case StateCancelled:
					Expect(errors.Is(err, ECancelled)).Should(BeTrue())
				default:
					Fail("The request should have settled")
				}

				Expect(observed).Should(HaveLen(3))
				Expect(observed[0]).Should(Equal(observed[1]))
				Expect(observed[1]).Should(Equal(observed[2]))

				_, ok := repository.Get(request.ID())

				Expect(ok).Should(BeFalse())
			}

			Expect(repository.Len()).Should(Equal(0))
			Expect(observer.Settled()).Should(Equal(200))
		})
	})

	Describe("Request", func() {
		It("Should run a callback registered after settlement immediately", func() {
			request := repository.NewRequest(&RecordingCollector{}, nil)
			called := false

			request.WhenComplete(func(result interface{}, err error) {
				called = true
				Expect(result).Should(Equal(0))
			})

			Expect(called).Should(BeTrue())
		})

		It("Should return ETimeout from Get without settling the request", func() {
			request := repository.NewRequest(&RecordingCollector{}, members(1))

			_, err := request.Get(time.Millisecond)

			Expect(err).Should(Equal(ETimeout))
			Expect(request.IsDone()).Should(BeFalse())
		})

		It("Should return the context error from Wait without settling the request", func() {
			request := repository.NewRequest(&RecordingCollector{}, members(1))
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := request.Wait(ctx)

			Expect(err).Should(Equal(context.Canceled))
			Expect(request.IsDone()).Should(BeFalse())
		})

		It("Should accept an explicit completion once", func() {
			request := repository.NewRequest(&RecordingCollector{}, members(1))

			Expect(request.Complete("x")).Should(BeTrue())
			Expect(request.CompleteExceptionally(errors.New("late"))).Should(BeFalse())

			result, err := request.Wait(context.Background())

			Expect(result).Should(Equal("x"))
			Expect(err).Should(BeNil())
		})
	})
})
