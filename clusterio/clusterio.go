package clusterio

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
	"time"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/collector"
	"github.com/PelionIoT/devicegrid/request"
)

// ClusterIOAgent is the invoking side of every cross-node operation
type ClusterIOAgent interface {
	// InvokeAsync dispatches command to targets and returns the in-flight
	// request. A nil targets slice addresses every member except this one.
	InvokeAsync(ctx context.Context, targets []address.Address, command interface{}, responseCollector collector.ResponseCollector, timeout time.Duration) *request.Request
	Invoke(ctx context.Context, targets []address.Address, command interface{}, responseCollector collector.ResponseCollector, timeout time.Duration) (interface{}, error)
	InvokeOnMember(ctx context.Context, target address.Address, command interface{}, timeout time.Duration) (interface{}, error)
	InvokeQuorum(ctx context.Context, targets []address.Address, command interface{}, timeout time.Duration) ([]collector.SenderResponse, error)
	CancelAll()
}
