package response

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
	"fmt"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/error"
)

// SuspectError reports that a member was believed to have failed, either by
// the transport or by a third party relaying the command.
type SuspectError struct {
	Member  address.Address
	Message string
}

func (e *SuspectError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("member %v is suspected: %s", e.Member, e.Message)
	}

	return fmt.Sprintf("member %v is suspected", e.Member)
}

func (e *SuspectError) Is(target error) bool {
	return target == ESuspect
}

// AvailabilityError reports that the data touched by a command is not
// available in the partition the destination belongs to.
type AvailabilityError struct {
	Message string
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("%s: %s", EUnavailable.Error(), e.Message)
}

func (e *AvailabilityError) Is(target error) bool {
	return target == EUnavailable
}

// OutdatedTopologyError reports that a command targeted an older view of data
// placement than the one installed at the destination.
type OutdatedTopologyError struct {
	RequestedTopology int
	CurrentTopology   int
}

func (e *OutdatedTopologyError) Error() string {
	return fmt.Sprintf("%s: requested topology %d, current topology %d", EOutdatedTopology.Error(), e.RequestedTopology, e.CurrentTopology)
}

func (e *OutdatedTopologyError) Is(target error) bool {
	return target == EOutdatedTopology
}

// RemoteError wraps an application error raised by a destination with the
// identity of that destination.
type RemoteError struct {
	Member address.Address
	Cause  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("error executing command on %v: %v", e.Member, e.Cause)
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

func IsInfrastructure(err error) bool {
	var suspectError *SuspectError
	var availabilityError *AvailabilityError
	var outdatedTopologyError *OutdatedTopologyError

	return errors.As(err, &suspectError) || errors.As(err, &availabilityError) || errors.As(err, &outdatedTopologyError)
}

// ResponseError converts the cause carried by an exception response into the
// error a caller sees. Infrastructure errors keep their identity so callers can
// react to them. Everything else is wrapped with the sender. An exception
// without a cause still fails, with ERemote.
func ResponseError(sender address.Address, cause error) error {
	if cause == nil {
		return &RemoteError{Member: sender, Cause: ERemote}
	}

	if IsInfrastructure(cause) {
		return cause
	}

	var remoteError *RemoteError

	if errors.As(cause, &remoteError) {
		return cause
	}

	return &RemoteError{Member: sender, Cause: cause}
}
