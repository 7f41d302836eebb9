package transport

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
)

// CommunicationError means the bridge to a site is down, as opposed to the
// site receiving the command and rejecting it
type CommunicationError struct {
	Site  string
	Cause error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("unable to reach site %s: %v", e.Site, e.Cause)
}

func (e *CommunicationError) Unwrap() error {
	return e.Cause
}

// RejectedError means a site received a command and refused to apply it.
// Cause is set when the site reported a coded error.
type RejectedError struct {
	Site       string
	StatusCode int
	Message    string
	Cause      error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("site %s rejected the command: (%d) %s", e.Site, e.StatusCode, e.Message)
}

func (e *RejectedError) Unwrap() error {
	return e.Cause
}

func IsCommunicationError(err error) bool {
	var communicationError *CommunicationError

	return errors.As(err, &communicationError)
}
