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
	"fmt"
)

type Kind int

const (
	KindValid          Kind = iota
	KindException      Kind = iota
	KindTargetNotFound Kind = iota
	KindUnsure         Kind = iota
)

func (kind Kind) String() string {
	switch kind {
	case KindValid:
		return "valid"
	case KindException:
		return "exception"
	case KindTargetNotFound:
		return "target not found"
	case KindUnsure:
		return "unsure"
	}

	return "unknown"
}

// Response is the classified form of a reply from one destination. Collectors
// only ever see one of the four variants below.
type Response interface {
	Kind() Kind
	// The destination executed the command and the command succeeded
	IsSuccessful() bool
	// The destination executed the command, whether or not it succeeded
	IsValid() bool
}

type ValidResponse struct {
	Value interface{}
}

func (r ValidResponse) Kind() Kind {
	return KindValid
}

func (r ValidResponse) IsSuccessful() bool {
	return true
}

func (r ValidResponse) IsValid() bool {
	return true
}

func (r ValidResponse) String() string {
	return fmt.Sprintf("ValidResponse{%v}", r.Value)
}

type ExceptionResponse struct {
	Cause error
}

func (r ExceptionResponse) Kind() Kind {
	return KindException
}

func (r ExceptionResponse) IsSuccessful() bool {
	return false
}

func (r ExceptionResponse) IsValid() bool {
	return true
}

func (r ExceptionResponse) String() string {
	return fmt.Sprintf("ExceptionResponse{%v}", r.Cause)
}

type targetNotFoundResponse struct {
}

func (r targetNotFoundResponse) Kind() Kind {
	return KindTargetNotFound
}

func (r targetNotFoundResponse) IsSuccessful() bool {
	return false
}

func (r targetNotFoundResponse) IsValid() bool {
	return false
}

func (r targetNotFoundResponse) String() string {
	return "TargetNotFound"
}

type unsureResponse struct {
}

func (r unsureResponse) Kind() Kind {
	return KindUnsure
}

func (r unsureResponse) IsSuccessful() bool {
	return false
}

func (r unsureResponse) IsValid() bool {
	return true
}

func (r unsureResponse) String() string {
	return "Unsure"
}

var (
	// The destination left the cluster or is not running the cache
	TargetNotFound Response = targetNotFoundResponse{}
	// The destination cannot determine the outcome yet
	Unsure Response = unsureResponse{}
)
