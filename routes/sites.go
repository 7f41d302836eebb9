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
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/xsite/journal"
)

type SitesEndpoint struct {
	GridFacade GridFacade
}

func (sitesEndpoint *SitesEndpoint) Attach(router *mux.Router) {
	// List the backup sites and whether they are offline
	router.HandleFunc("/sites", func(w http.ResponseWriter, r *http.Request) {
		encodedSites, _ := json.Marshal(sitesEndpoint.GridFacade.Sites())

		writeJSON(w, encodedSites)
	}).Methods("GET")

	router.HandleFunc("/sites/{siteID}/online", func(w http.ResponseWriter, r *http.Request) {
		siteID := mux.Vars(r)["siteID"]
		changed, err := sitesEndpoint.GridFacade.BringOnline(siteID)

		if err != nil {
			Log.Warningf("PUT /sites/%s/online: %v", siteID, err)

			writeError(w, err)

			return
		}

		encodedChange, _ := json.Marshal(SiteStatusChange{Site: siteID, Offline: false, Changed: changed})

		writeJSON(w, encodedChange)
	}).Methods("PUT")

	router.HandleFunc("/sites/{siteID}/offline", func(w http.ResponseWriter, r *http.Request) {
		siteID := mux.Vars(r)["siteID"]
		changed, err := sitesEndpoint.GridFacade.TakeOffline(siteID)

		if err != nil {
			Log.Warningf("PUT /sites/%s/offline: %v", siteID, err)

			writeError(w, err)

			return
		}

		encodedChange, _ := json.Marshal(SiteStatusChange{Site: siteID, Offline: true, Changed: changed})

		writeJSON(w, encodedChange)
	}).Methods("PUT")

	// Journaled failures of a site, newest first
	router.HandleFunc("/sites/{siteID}/failures", func(w http.ResponseWriter, r *http.Request) {
		siteID := mux.Vars(r)["siteID"]
		limit := 0

		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			var err error

			limit, err = strconv.Atoi(limitParam)

			if err != nil || limit < 0 {
				Log.Warningf("GET /sites/%s/failures: Invalid limit %q", siteID, limitParam)

				writeError(w, EMalformed)

				return
			}
		}

		entries, err := sitesEndpoint.GridFacade.SiteFailures(siteID, limit)

		if err != nil {
			Log.Warningf("GET /sites/%s/failures: %v", siteID, err)

			writeError(w, err)

			return
		}

		if entries == nil {
			entries = []journal.Entry{}
		}

		encodedEntries, _ := json.Marshal(entries)

		writeJSON(w, encodedEntries)
	}).Methods("GET")
}
