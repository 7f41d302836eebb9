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
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/response"
)

func NQuorum(replicas int) int {
	return (replicas / 2) + 1
}

// QuorumCollector completes once a majority of the destinations returned a
// valid reply. The result is the []SenderResponse of the valid replies seen so
// far. The request fails with ENoQuorum as soon as a majority can no longer
// be reached.
type QuorumCollector struct {
	replicas int
	valid    []SenderResponse
	nFailed  int
}

func NewQuorumCollector(replicas int) *QuorumCollector {
	return &QuorumCollector{
		replicas: replicas,
		valid:    make([]SenderResponse, 0, replicas),
	}
}

func (collector *QuorumCollector) AddResponse(sender address.Address, r response.Response) (interface{}, bool, error) {
	if r.Kind() == response.KindValid {
		collector.valid = append(collector.valid, SenderResponse{Sender: sender, Response: r})

		if len(collector.valid) == NQuorum(collector.replicas) {
			return collector.valid, true, nil
		}

		return nil, false, nil
	}

	if r.Kind() == response.KindException {
		Log.Warningf("Destination %v failed while a quorum was being collected: %v", sender, r.(response.ExceptionResponse).Cause)
	}

	collector.nFailed++

	if collector.replicas-collector.nFailed < NQuorum(collector.replicas) {
		return nil, true, ENoQuorum
	}

	return nil, false, nil
}

func (collector *QuorumCollector) Finish() (interface{}, error) {
	return nil, ENoQuorum
}
