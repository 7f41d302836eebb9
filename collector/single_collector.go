package collector

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
	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/response"
)

// ValidSingleResponseCollector is meant for requests with exactly one
// destination. The first valid reply completes the request with its value and
// an exception fails it.
type ValidSingleResponseCollector struct {
	// Decides what happens when the destination is gone. When nil the request
	// fails with a suspect error.
	OnTargetNotFound func(sender address.Address) (interface{}, error)
}

func NewValidSingleResponseCollector() *ValidSingleResponseCollector {
	return &ValidSingleResponseCollector{}
}

func (collector *ValidSingleResponseCollector) AddResponse(sender address.Address, r response.Response) (interface{}, bool, error) {
	switch r.Kind() {
	case response.KindValid:
		return r.(response.ValidResponse).Value, true, nil
	case response.KindException:
		return nil, true, response.ResponseError(sender, r.(response.ExceptionResponse).Cause)
	case response.KindTargetNotFound:
		if collector.OnTargetNotFound != nil {
			result, err := collector.OnTargetNotFound(sender)

			return result, true, err
		}

		return nil, true, &response.SuspectError{Member: sender, Message: "target not found"}
	}

	return nil, false, nil
}

// Finish is only reached when the single reply never produced a result.
// Callers should treat the nil it returns as no opinion.
func (collector *ValidSingleResponseCollector) Finish() (interface{}, error) {
	return nil, nil
}
