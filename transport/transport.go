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
	"context"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/response"
)

// ReplyHandler receives the raw reply of one destination of a request
type ReplyHandler interface {
	Receive(requestID uint64, sender address.Address, raw *response.RawReply)
}

type MembershipListener interface {
	OnMembershipChange(members []address.Address)
}

// ClusterTransport delivers commands to members of the local cluster. Replies
// come back asynchronously through the ReplyHandler, tagged with the request
// id passed to Send.
type ClusterTransport interface {
	LocalAddress() address.Address
	Members() []address.Address
	Send(ctx context.Context, requestID uint64, targets []address.Address, command interface{}) error
	SetReplyHandler(handler ReplyHandler)
	AddMembershipListener(listener MembershipListener)
}

// SiteTransport delivers a command to a remote site and blocks until that
// site applied it, rejected it or could not be reached. Transport level
// failures are reported as *CommunicationError.
type SiteTransport interface {
	SendToSite(ctx context.Context, site string, command interface{}) (interface{}, error)
}
