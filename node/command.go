package node

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

	. "github.com/PelionIoT/devicegrid/error"
)

const (
	OpGet    = "get"
	OpPut    = "put"
	OpDelete = "delete"
)

// Command is the body members and backup sites exchange for one key
type Command struct {
	Op    string          `json:"op"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (command Command) IsWrite() bool {
	return command.Op == OpPut || command.Op == OpDelete
}

// SiteReply is what a backup site answers to a command relayed to it
type SiteReply struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

func DecodeCommand(encoded []byte) (Command, error) {
	var command Command

	if err := json.Unmarshal(encoded, &command); err != nil {
		return Command{}, EMalformed
	}

	if command.Key == "" {
		return Command{}, EEmpty
	}

	switch command.Op {
	case OpGet, OpDelete:
	case OpPut:
		if len(command.Value) == 0 {
			return Command{}, EEmpty
		}
	default:
		return Command{}, EMalformed
	}

	return command, nil
}
