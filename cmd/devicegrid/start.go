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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/node"
)

type cmdStart struct {
	global *cmdGlobal
}

func (c *cmdStart) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "start"
	cmd.Short = "Start a node"
	cmd.Long = "Start a node using the config file given with --conf. The node runs until it receives SIGINT or SIGTERM."
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run

	return cmd
}

func (c *cmdStart) Run(cmd *cobra.Command, args []string) error {
	ysc, err := c.global.loadConfig()
	if err != nil {
		return err
	}

	gridNode := node.New()
	stop := make(chan struct{})
	signals := make(chan os.Signal, 1)

	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	go WatchLoggingConfig(stop)
	go func() {
		select {
		case sig := <-signals:
			Log.Infof("Received %v. Shutting down...", sig)

			gridNode.Stop()
		case <-stop:
		}
	}()

	err = gridNode.Start(node.OptionsFromConfig(ysc))
	close(stop)

	return err
}
