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
	"context"
	"encoding/json"

	. "github.com/PelionIoT/devicegrid/error"
	"github.com/PelionIoT/devicegrid/routes"
	"github.com/PelionIoT/devicegrid/xsite/journal"
)

type GridNodeFacade struct {
	node *GridNode
}

func (nodeFacade *GridNodeFacade) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return nodeFacade.node.Get(ctx, key)
}

func (nodeFacade *GridNodeFacade) Put(ctx context.Context, key string, value json.RawMessage) error {
	return nodeFacade.node.Put(ctx, key, value)
}

func (nodeFacade *GridNodeFacade) Delete(ctx context.Context, key string) error {
	return nodeFacade.node.Delete(ctx, key)
}

func (nodeFacade *GridNodeFacade) Sites() []routes.SiteStatus {
	sender := nodeFacade.node.sender
	sites := sender.Sites()
	statuses := make([]routes.SiteStatus, 0, len(sites))

	for _, site := range sites {
		status, ok := sender.OfflineStatus(site)

		if !ok {
			continue
		}

		statuses = append(statuses, routes.SiteStatus{
			Site:     site,
			Offline:  status.IsOffline(),
			Failures: status.FailureCount(),
		})
	}

	return statuses
}

func (nodeFacade *GridNodeFacade) BringOnline(site string) (bool, error) {
	changed, err := nodeFacade.node.sender.BringOnline(site)

	nodeFacade.node.metrics.RecordOfflineStatus(nodeFacade.node.sender)

	return changed, err
}

func (nodeFacade *GridNodeFacade) TakeOffline(site string) (bool, error) {
	changed, err := nodeFacade.node.sender.TakeOffline(site)

	nodeFacade.node.metrics.RecordOfflineStatus(nodeFacade.node.sender)

	return changed, err
}

func (nodeFacade *GridNodeFacade) SiteFailures(site string, limit int) ([]journal.Entry, error) {
	if _, ok := nodeFacade.node.sender.OfflineStatus(site); !ok {
		return nil, EUnknownSite
	}

	if nodeFacade.node.journal == nil {
		return nil, nil
	}

	return nodeFacade.node.journal.Query(journal.Query{Site: site, Descending: true, Limit: limit})
}
