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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context/ctxhttp"

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/transport"
)

const (
	RequestTimeoutSeconds = 30
)

func CommandsEndpoint(site string) string {
	return fmt.Sprintf("/xsite/%s/commands", site)
}

// Client is a site transport that posts commands to the relay of each
// remote site over HTTP
type Client struct {
	httpClient *http.Client
	lock       sync.Mutex
	sites      map[string]string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * RequestTimeoutSeconds,
		},
		sites: make(map[string]string),
	}
}

// AddSite registers the base url of the relay of site, such as
// http://dc2.example.com:9090
func (client *Client) AddSite(site string, baseURL string) {
	client.lock.Lock()
	defer client.lock.Unlock()

	client.sites[site] = strings.TrimSuffix(baseURL, "/")
}

func (client *Client) SendToSite(ctx context.Context, site string, command interface{}) (interface{}, error) {
	client.lock.Lock()
	baseURL, ok := client.sites[site]
	client.lock.Unlock()

	if !ok {
		return nil, EUnknownSite
	}

	encodedCommand, err := json.Marshal(command)

	if err != nil {
		return nil, err
	}

	resp, err := ctxhttp.Post(ctx, client.httpClient, baseURL+CommandsEndpoint(site), "application/json", bytes.NewReader(encodedCommand))

	if err != nil {
		return nil, &transport.CommunicationError{Site: site, Cause: err}
	}

	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)

	if err != nil {
		return nil, &transport.CommunicationError{Site: site, Cause: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return json.RawMessage(body), nil
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		Log.Debugf("Relay of site %s is unavailable: (%d) %s", site, resp.StatusCode, string(body))

		return nil, &transport.CommunicationError{Site: site, Cause: fmt.Errorf("Received error code from relay: (%d) %s", resp.StatusCode, string(body))}
	}

	return nil, rejection(site, resp.StatusCode, body)
}

func rejection(site string, statusCode int, body []byte) error {
	rejectedError := &transport.RejectedError{
		Site:       site,
		StatusCode: statusCode,
		Message:    string(body),
	}

	gridError, err := GridErrorFromJSON(body)

	if err != nil {
		return rejectedError
	}

	rejectedError.Message = gridError.Error()

	if sentinel, ok := ErrorFromCode(gridError.Code()); ok {
		rejectedError.Cause = sentinel
	}

	return rejectedError
}
