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
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/config"
	"github.com/PelionIoT/devicegrid/xsite"
)

const (
	ClusterEndpoint = "/cluster"
	MetricsEndpoint = "/metrics"
)

type NodeInitializationOptions struct {
	Local      address.Address
	ListenHost string
	ListenPort int
	// Cluster endpoints of the members this node dials
	Peers             []string
	RequestTimeout    time.Duration
	Backups           []BackupSiteOptions
	Retry             RetryOptions
	JournalFile       string
	JournalEventLimit uint64
}

type BackupSiteOptions struct {
	Backup      xsite.XSiteBackup
	URL         string
	TakeOffline xsite.TakeOfflineConfig
}

type RetryOptions struct {
	MaxRetries         int
	WaitBetweenRetries time.Duration
	Backoff            string
}

// OptionsFromConfig dials only the members whose id orders after the local
// id so that every pair of members shares exactly one connection
func OptionsFromConfig(ysc *config.YAMLConfig) NodeInitializationOptions {
	local := ysc.LocalAddress()
	options := NodeInitializationOptions{
		Local:          local,
		ListenHost:     ysc.Node.Host,
		ListenPort:     ysc.Node.Port,
		RequestTimeout: ysc.RequestTimeout(),
		Retry: RetryOptions{
			MaxRetries:         ysc.XSite.Retry.MaxRetries,
			WaitBetweenRetries: ysc.WaitBetweenRetries(),
			Backoff:            ysc.XSite.Retry.Backoff,
		},
	}

	for _, member := range ysc.Members {
		memberAddress, err := address.Parse(member.ID)

		if err != nil || local.Compare(memberAddress) >= 0 {
			continue
		}

		options.Peers = append(options.Peers, ClusterURL(member.Host, member.Port))
	}

	backups := ysc.Backups()

	for i, backup := range ysc.XSite.Backups {
		options.Backups = append(options.Backups, BackupSiteOptions{
			Backup:      backups[i],
			URL:         backup.URL,
			TakeOffline: backup.TakeOfflineConfig(),
		})
	}

	if ysc.Journal != nil {
		options.JournalFile = ysc.Journal.DBFile
		options.JournalEventLimit = ysc.Journal.EventLimit
	}

	return options
}

func ClusterURL(host string, port int) string {
	return fmt.Sprintf("ws://%s%s", net.JoinHostPort(host, strconv.Itoa(port)), ClusterEndpoint)
}

func (options NodeInitializationOptions) ListenAddress() string {
	return net.JoinHostPort(options.ListenHost, strconv.Itoa(options.ListenPort))
}

func (options NodeInitializationOptions) JournalEnabled() bool {
	return options.JournalFile != ""
}

func (options NodeInitializationOptions) XSiteBackups() []xsite.XSiteBackup {
	backups := make([]xsite.XSiteBackup, 0, len(options.Backups))

	for _, backup := range options.Backups {
		backups = append(backups, backup.Backup)
	}

	return backups
}

// Policy returns a fresh policy since policies count attempts
func (options RetryOptions) Policy() xsite.RetryPolicy {
	switch options.Backoff {
	case config.BackoffLinear:
		return xsite.NewStrategyPolicy(strategy.Limit(uint(options.MaxRetries+1)), strategy.Backoff(backoff.Linear(options.WaitBetweenRetries)))
	case config.BackoffExponential:
		return xsite.NewStrategyPolicy(strategy.Limit(uint(options.MaxRetries+1)), strategy.Backoff(backoff.Exponential(options.WaitBetweenRetries, 2)))
	}

	if options.MaxRetries == 0 {
		return xsite.NoRetryPolicy
	}

	return xsite.NewMaxRetriesPolicy(options.MaxRetries)
}

// Wait is the pause the command takes between attempts. Backoff strategies
// sleep on their own so the command does not wait on top of them.
func (options RetryOptions) Wait() time.Duration {
	if options.Backoff == config.BackoffLinear || options.Backoff == config.BackoffExponential {
		return 0
	}

	return options.WaitBetweenRetries
}
