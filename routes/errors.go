package routes

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
	"errors"
	"io"
	"net/http"

	. "github.com/PelionIoT/devicegrid/error"
	"github.com/PelionIoT/devicegrid/transport"
)

func statusCode(err error) int {
	switch {
	case errors.Is(err, ENoSuchKey), errors.Is(err, EUnknownSite):
		return http.StatusNotFound
	case errors.Is(err, EEmpty), errors.Is(err, EMalformed):
		return http.StatusBadRequest
	case errors.Is(err, ETimeout):
		return http.StatusGatewayTimeout
	case transport.IsCommunicationError(err):
		return http.StatusBadGateway
	case errors.Is(err, ENoQuorum), errors.Is(err, ESiteOffline), errors.Is(err, EClosed):
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	var gridError GridError

	if !errors.As(err, &gridError) {
		gridError = GridError{ErrorMessage: err.Error(), ErrorCode: transport.NoErrorCode}
	} else {
		gridError.ErrorMessage = err.Error()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf8")
	w.WriteHeader(statusCode(err))
	w.Write(gridError.JSON())
	io.WriteString(w, "\n")
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	io.WriteString(w, "\n")
}
