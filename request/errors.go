package request

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
	"time"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/error"
)

type TimeoutError struct {
	RequestID uint64
	Timeout   time.Duration
	// Destinations that had not replied when the timeout fired
	Pending []address.Address
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %d timed out after %v waiting for %v", e.RequestID, e.Timeout, e.Pending)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ETimeout
}

type CancellationError struct {
	RequestID uint64
	Cause     error
}

func (e *CancellationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("request %d was cancelled", e.RequestID)
	}

	return fmt.Sprintf("request %d was cancelled: %v", e.RequestID, e.Cause)
}

func (e *CancellationError) Unwrap() error {
	return e.Cause
}

func (e *CancellationError) Is(target error) bool {
	return target == ECancelled
}

// CompletionError is the envelope for errors raised by a collector
type CompletionError struct {
	Cause error
}

func (e *CompletionError) Error() string {
	return e.Cause.Error()
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

func wrapCompletion(err error) error {
	var completionError *CompletionError

	if errors.As(err, &completionError) {
		return err
	}

	return &CompletionError{Cause: err}
}
