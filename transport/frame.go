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
	"encoding/json"
	"errors"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/error"
	"github.com/PelionIoT/devicegrid/response"
)

type FrameType string

const (
	FrameHello   FrameType = "hello"
	FrameCommand FrameType = "command"
	FrameReply   FrameType = "reply"
)

// Frame is the JSON envelope exchanged between members. Each side of a new
// connection first sends a hello frame naming itself.
type Frame struct {
	Type      FrameType       `json:"type"`
	RequestID uint64          `json:"requestID"`
	Sender    address.Address `json:"sender"`
	Command   json.RawMessage `json:"command,omitempty"`
	Reply     *WireReply      `json:"reply,omitempty"`
}

type WireError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	// Set for outdated topology errors
	RequestedTopology int `json:"requestedTopology,omitempty"`
	CurrentTopology   int `json:"currentTopology,omitempty"`
}

type WireReply struct {
	Kind  response.ReplyKind `json:"kind"`
	Value json.RawMessage    `json:"value,omitempty"`
	Error *WireError         `json:"error,omitempty"`
}

const NoErrorCode = -1

func EncodeReply(raw *response.RawReply) (*WireReply, error) {
	if raw == nil {
		return &WireReply{Kind: response.ReplyValue}, nil
	}

	wireReply := &WireReply{Kind: raw.Kind}

	if raw.Value != nil {
		encodedValue, err := json.Marshal(raw.Value)

		if err != nil {
			return nil, err
		}

		wireReply.Value = encodedValue
	}

	if raw.Err != nil {
		wireReply.Error = encodeError(raw.Err)
	}

	return wireReply, nil
}

func encodeError(err error) *WireError {
	var gridError GridError
	var suspectError *response.SuspectError
	var availabilityError *response.AvailabilityError
	var outdatedTopologyError *response.OutdatedTopologyError

	switch {
	case errors.As(err, &outdatedTopologyError):
		return &WireError{
			Message:           err.Error(),
			Code:              EOutdatedTopology.Code(),
			RequestedTopology: outdatedTopologyError.RequestedTopology,
			CurrentTopology:   outdatedTopologyError.CurrentTopology,
		}
	case errors.As(err, &suspectError):
		return &WireError{Message: suspectError.Message, Code: ESuspect.Code()}
	case errors.As(err, &availabilityError):
		return &WireError{Message: availabilityError.Message, Code: EUnavailable.Code()}
	case errors.As(err, &gridError):
		return &WireError{Message: gridError.Error(), Code: gridError.Code()}
	}

	return &WireError{Message: err.Error(), Code: NoErrorCode}
}

func DecodeReply(wireReply *WireReply) *response.RawReply {
	if wireReply == nil {
		return nil
	}

	raw := &response.RawReply{Kind: wireReply.Kind}

	if len(wireReply.Value) != 0 {
		raw.Value = wireReply.Value
	}

	if wireReply.Error != nil {
		raw.Err = decodeError(wireReply.Error)
	}

	return raw
}

func decodeError(wireError *WireError) error {
	switch wireError.Code {
	case ESuspect.Code():
		return &response.SuspectError{Message: wireError.Message}
	case EUnavailable.Code():
		return &response.AvailabilityError{Message: wireError.Message}
	case EOutdatedTopology.Code():
		return &response.OutdatedTopologyError{RequestedTopology: wireError.RequestedTopology, CurrentTopology: wireError.CurrentTopology}
	}

	if gridError, ok := ErrorFromCode(wireError.Code); ok {
		return gridError
	}

	return errors.New(wireError.Message)
}
