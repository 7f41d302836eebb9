package response_test

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
	"errors"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/response"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Classify", func() {
	sender := address.New(address.WithName("sender"))

	It("Should classify a nil reply as a valid response with an empty value", func() {
		r := Classify(sender, nil)

		Expect(r.Kind()).Should(Equal(KindValid))
		Expect(r.(ValidResponse).Value).Should(BeNil())
		Expect(r.IsSuccessful()).Should(BeTrue())
	})

	It("Should classify a value reply as a valid response carrying that value", func() {
		r := Classify(sender, &RawReply{Kind: ReplyValue, Value: "abc"})

		Expect(r).Should(Equal(ValidResponse{Value: "abc"}))
	})

	It("Should classify an exception reply as an exception response carrying the cause", func() {
		cause := errors.New("boom")
		r := Classify(sender, &RawReply{Kind: ReplyException, Err: cause})

		Expect(r.Kind()).Should(Equal(KindException))
		Expect(r.(ExceptionResponse).Cause).Should(Equal(cause))
		Expect(r.IsValid()).Should(BeTrue())
		Expect(r.IsSuccessful()).Should(BeFalse())
	})

	It("Should classify a not found reply as TargetNotFound", func() {
		r := Classify(sender, &RawReply{Kind: ReplyNotFound})

		Expect(r).Should(Equal(TargetNotFound))
		Expect(r.IsValid()).Should(BeFalse())
	})

	It("Should classify an unsure reply as Unsure", func() {
		Expect(Classify(sender, &RawReply{Kind: ReplyUnsure})).Should(Equal(Unsure))
	})

	It("Should wrap a third-party unreachable reply into a suspect error", func() {
		r := Classify(sender, &RawReply{Kind: ReplySuspect, Err: errors.New("relay lost the member")})

		Expect(r.Kind()).Should(Equal(KindException))

		var suspectError *SuspectError

		Expect(errors.As(r.(ExceptionResponse).Cause, &suspectError)).Should(BeTrue())
		Expect(suspectError.Member.Equals(sender)).Should(BeTrue())
		Expect(errors.Is(suspectError, ESuspect)).Should(BeTrue())
	})
})

var _ = Describe("ResponseError", func() {
	sender := address.New()

	It("Should return infrastructure errors as they are", func() {
		suspect := &SuspectError{Member: sender}
		unavailable := &AvailabilityError{Message: "minority partition"}
		outdated := &OutdatedTopologyError{RequestedTopology: 3, CurrentTopology: 4}

		Expect(ResponseError(sender, suspect)).Should(BeIdenticalTo(suspect))
		Expect(ResponseError(sender, unavailable)).Should(BeIdenticalTo(unavailable))
		Expect(ResponseError(sender, outdated)).Should(BeIdenticalTo(outdated))
	})

	It("Should wrap application errors with the sender", func() {
		cause := errors.New("constraint violated")
		err := ResponseError(sender, cause)

		var remoteError *RemoteError

		Expect(errors.As(err, &remoteError)).Should(BeTrue())
		Expect(remoteError.Member.Equals(sender)).Should(BeTrue())
		Expect(errors.Is(err, cause)).Should(BeTrue())
	})

	It("Should not wrap an error that is already a remote error", func() {
		remoteError := &RemoteError{Member: sender, Cause: errors.New("x")}

		Expect(ResponseError(address.New(), remoteError)).Should(BeIdenticalTo(remoteError))
	})

	It("Should report an exception without a cause as an ERemote failure of the sender", func() {
		err := ResponseError(sender, nil)

		var remoteError *RemoteError

		Expect(err).ShouldNot(BeNil())
		Expect(errors.As(err, &remoteError)).Should(BeTrue())
		Expect(remoteError.Member.Equals(sender)).Should(BeTrue())
		Expect(errors.Is(err, ERemote)).Should(BeTrue())
	})
})
