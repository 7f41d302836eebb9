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
	"encoding/json"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/mux"

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
)

type KeysEndpoint struct {
	GridFacade GridFacade
}

func (keysEndpoint *KeysEndpoint) Attach(router *mux.Router) {
	// Read a key from this member or any other member that holds it
	router.HandleFunc("/keys/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		value, err := keysEndpoint.GridFacade.Get(r.Context(), key)

		if err != nil {
			Log.Warningf("GET /keys/%s: %v", key, err)

			writeError(w, err)

			return
		}

		writeJSON(w, value)
	}).Methods("GET")

	// Write a key to the cluster and its backup sites
	router.HandleFunc("/keys/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		value, err := ioutil.ReadAll(r.Body)

		if err != nil {
			Log.Warningf("PUT /keys/%s: Unable to read request body: %v", key, err)

			writeError(w, err)

			return
		}

		if len(value) == 0 {
			Log.Warningf("PUT /keys/%s: Empty request body", key)

			writeError(w, EEmpty)

			return
		}

		if !json.Valid(value) {
			Log.Warningf("PUT /keys/%s: Unable to parse request body", key)

			writeError(w, EMalformed)

			return
		}

		if err := keysEndpoint.GridFacade.Put(r.Context(), key, value); err != nil {
			Log.Warningf("PUT /keys/%s: %v", key, err)

			writeError(w, err)

			return
		}

		writeJSON(w, nil)
	}).Methods("PUT")

	router.HandleFunc("/keys/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]

		if err := keysEndpoint.GridFacade.Delete(r.Context(), key); err != nil {
			Log.Warningf("DELETE /keys/%s: %v", key, err)

			writeError(w, err)

			return
		}

		writeJSON(w, nil)
	}).Methods("DELETE")
}
