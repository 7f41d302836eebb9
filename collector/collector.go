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

// ResponseCollector aggregates the replies of the destinations of one request
// into a single result.
//
// AddResponse is never called concurrently for the same collector and each
// call observes the effects of the previous ones, so implementations need no
// synchronization of their own. Once AddResponse reports done, or returns an
// error, no further calls are made. If every destination replied and none of
// the calls reported done, Finish is called exactly once.
type ResponseCollector interface {
	AddResponse(sender address.Address, r response.Response) (result interface{}, done bool, err error)
	Finish() (interface{}, error)
}

// SenderResponse pairs a classified reply with the member that sent it
type SenderResponse struct {
	Sender   address.Address
	Response response.Response
}
