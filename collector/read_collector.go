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

type readMarker string

func (marker readMarker) String() string {
	return string(marker)
}

var (
	// At least one destination could not tell whether it holds the value
	UnsureResult interface{} = readMarker("unsure")
	// No destination holds the value
	NotFoundResult interface{} = readMarker("not found")
)

// ClusteredReadCollector completes on the first valid reply from any
// destination and fails on the first exception. Leavers do not count.
type ClusteredReadCollector struct {
	unsure bool
}

func NewClusteredReadCollector() *ClusteredReadCollector {
	return &ClusteredReadCollector{}
}

func (collector *ClusteredReadCollector) AddResponse(sender address.Address, r response.Response) (interface{}, bool, error) {
	switch r.Kind() {
	case response.KindValid:
		return r.(response.ValidResponse).Value, true, nil
	case response.KindException:
		return nil, true, response.ResponseError(sender, r.(response.ExceptionResponse).Cause)
	case response.KindUnsure:
		collector.unsure = true
	}

	return nil, false, nil
}

func (collector *ClusteredReadCollector) Finish() (interface{}, error) {
	if collector.unsure {
		return UnsureResult, nil
	}

	return NotFoundResult, nil
}
