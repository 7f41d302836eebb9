package main

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

	"github.com/spf13/cobra"
)

var templateConfig string = `# The node section identifies this member of the cluster. The id must be a
# UUID that is unique in the cluster. name, site, rack and machine are labels
# that only show up in logs, except for site which is also the name under
# which other sites send backups to this node.
# **REQUIRED**
node:
    id: 6ba7b810-9dad-11d1-80b4-00c04fd430c8
    name: node-a
    site: nyc
    rack: r1
    machine: m1
    host: 0.0.0.0
    port: 9090

# The members list names the other members of the cluster. Of every pair of
# members the one with the lower id dials the other one, so it is fine to give
# every member the same list, including itself.
members:
#    - id: 6ba7b811-9dad-11d1-80b4-00c04fd430c8
#      host: 10.0.0.2
#      port: 9090

# Time in milliseconds a cluster request waits for replies before failing.
# Defaults to 10000
requestTimeout: 10000

# Writes are backed up to every site in the backups list. A sync backup is
# waited for and a failure fails the write. An async backup is only logged and
# journaled when it fails. timeout is in milliseconds and 0 means no timeout.
# A site is taken offline after afterFailures consecutive failures that span
# at least minTimeToWait milliseconds. Offline sites are skipped until they
# are brought back online with PUT /sites/{site}/online.
xsite:
    backups:
#        - site: lon
#          url: http://lon.example.com:9090
#          sync: true
#          timeout: 2500
#          takeOffline:
#              afterFailures: 3
#              minTimeToWait: 60000
    # Failed sync backups are retried up to maxRetries times. backoff is one
    # of none, linear or exponential. With a backoff waitBetweenRetries is the
    # factor of the backoff.
    retry:
        maxRetries: 3
        waitBetweenRetries: 500
        backoff: none

# The journal keeps failed backups on disk. A relative path is resolved
# against the directory of this file. Once eventLimit entries are recorded the
# oldest ones are purged.
journal:
    db: /var/lib/devicegrid/journal
    eventLimit: 10000

# The log level can be one of the following: critical, error, warning, notice,
# info, debug
logLevel: info
`

type cmdConf struct{}

func (c *cmdConf) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "conf"
	cmd.Short = "Print a template config file"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run

	return cmd
}

func (c *cmdConf) Run(cmd *cobra.Command, args []string) error {
	fmt.Print(templateConfig)

	return nil
}
