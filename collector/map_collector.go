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

// MapResponseCollector gathers the replies of every destination keyed by sender.
// Finish returns a map[address.Key]SenderResponse.
type MapResponseCollector struct {
	responses     map[address.Key]SenderResponse
	filter        bool
	ignoreLeavers bool
	validOnly     bool
	exception     error
}

// NewMapResponseCollector keeps every reply, whatever its kind
func NewMapResponseCollector(expectedSize int) *MapResponseCollector {
	return &MapResponseCollector{
		responses: make(map[address.Key]SenderResponse, expectedSize),
	}
}

// IgnoreLeavers keeps valid replies and fails in Finish with the first
// exception. Leavers are skipped when ignoreLeavers is set and otherwise make
// Finish fail with a suspect error.
func IgnoreLeavers(ignoreLeavers bool, expectedSize int) *MapResponseCollector {
	return &MapResponseCollector{
		responses:     make(map[address.Key]SenderResponse, expectedSize),
		filter:        true,
		ignoreLeavers: ignoreLeavers,
	}
}

// ValidOnly is IgnoreLeavers(true) that also drops unsure replies
func ValidOnly(expectedSize int) *MapResponseCollector {
	return &MapResponseCollector{
		responses:     make(map[address.Key]SenderResponse, expectedSize),
		filter:        true,
		ignoreLeavers: true,
		validOnly:     true,
	}
}

func (collector *MapResponseCollector) AddResponse(sender address.Address, r response.Response) (interface{}, bool, error) {
	if !collector.filter {
		collector.responses[sender.Key()] = SenderResponse{Sender: sender, Response: r}

		return nil, false, nil
	}

	switch r.Kind() {
	case response.KindValid:
		collector.responses[sender.Key()] = SenderResponse{Sender: sender, Response: r}
	case response.KindUnsure:
		if !collector.validOnly {
			collector.responses[sender.Key()] = SenderResponse{Sender: sender, Response: r}
		}
	case response.KindException:
		if collector.exception == nil {
			collector.exception = response.ResponseError(sender, r.(response.ExceptionResponse).Cause)
		}
	case response.KindTargetNotFound:
		if !collector.ignoreLeavers && collector.exception == nil {
			collector.exception = &response.SuspectError{Member: sender, Message: "member left before replying"}
		}
	}

	return nil, false, nil
}

func (collector *MapResponseCollector) Finish() (interface{}, error) {
	if collector.exception != nil {
		return nil, collector.exception
	}

	return collector.responses, nil
}
