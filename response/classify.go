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
	"github.com/PelionIoT/devicegrid/address"
)

type ReplyKind int

const (
	ReplyValue     ReplyKind = iota
	ReplyException ReplyKind = iota
	ReplyNotFound  ReplyKind = iota
	ReplyUnsure    ReplyKind = iota
	// A third party could not reach the destination
	ReplySuspect ReplyKind = iota
)

// RawReply is what a transport hands over for one destination before it has
// been classified
type RawReply struct {
	Kind  ReplyKind
	Value interface{}
	Err   error
}

// Classify turns a raw reply into exactly one Response variant. A nil reply
// is a valid reply with an empty value.
func Classify(sender address.Address, raw *RawReply) Response {
	if raw == nil {
		return ValidResponse{}
	}

	switch raw.Kind {
	case ReplySuspect:
		message := ""

		if raw.Err != nil {
			message = raw.Err.Error()
		}

		return ExceptionResponse{Cause: &SuspectError{Member: sender, Message: message}}
	case ReplyException:
		if raw.Err == nil {
			return ValidResponse{Value: raw.Value}
		}

		return ExceptionResponse{Cause: raw.Err}
	case ReplyNotFound:
		return TargetNotFound
	case ReplyUnsure:
		return Unsure
	}

	if raw.Err != nil {
		return ExceptionResponse{Cause: raw.Err}
	}

	return ValidResponse{Value: raw.Value}
}
