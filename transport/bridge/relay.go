package bridge

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
	"encoding/json"
	"errors"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/mux"

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/transport"
)

// SiteCommandHandler applies a command replicated from another site
type SiteCommandHandler func(ctx context.Context, command json.RawMessage) (interface{}, error)

// Relay receives commands replicated to the local site
type Relay struct {
	Site    string
	Handler SiteCommandHandler
}

func NewRelay(site string, handler SiteCommandHandler) *Relay {
	return &Relay{
		Site:    site,
		Handler: handler,
	}
}

func (relay *Relay) Attach(router *mux.Router) {
	router.HandleFunc("/xsite/{site}/commands", func(w http.ResponseWriter, r *http.Request) {
		site := mux.Vars(r)["site"]

		if site != relay.Site {
			Log.Warningf("POST /xsite/%s/commands: This relay serves site %s", site, relay.Site)

			writeError(w, http.StatusNotFound, EUnknownSite)

			return
		}

		command, err := ioutil.ReadAll(r.Body)

		if err != nil {
			Log.Warningf("POST /xsite/%s/commands: Unable to read message body", site)

			writeError(w, http.StatusInternalServerError, err)

			return
		}

		if !json.Valid(command) {
			Log.Warningf("POST /xsite/%s/commands: Unable to parse message body", site)

			writeError(w, http.StatusBadRequest, EMalformed)

			return
		}

		result, err := relay.Handler(r.Context(), command)

		if err != nil {
			Log.Warningf("POST /xsite/%s/commands: Unable to apply command: %v", site, err)

			writeError(w, http.StatusInternalServerError, err)

			return
		}

		encodedResult, err := json.Marshal(result)

		if err != nil {
			Log.Errorf("POST /xsite/%s/commands: Unable to encode result: %v", site, err)

			writeError(w, http.StatusInternalServerError, err)

			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf8")
		w.WriteHeader(http.StatusOK)
		w.Write(encodedResult)
	}).Methods("POST")
}

func writeError(w http.ResponseWriter, statusCode int, err error) {
	var gridError GridError

	if !errors.As(err, &gridError) {
		gridError = GridError{ErrorMessage: err.Error(), ErrorCode: transport.NoErrorCode}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf8")
	w.WriteHeader(statusCode)
	w.Write(gridError.JSON())
	io.WriteString(w, "\n")
}
