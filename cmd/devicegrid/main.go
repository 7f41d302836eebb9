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
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/PelionIoT/devicegrid/config"
)

type cmdGlobal struct {
	flagConfigFile string
}

func (c *cmdGlobal) loadConfig() (*config.YAMLConfig, error) {
	if c.flagConfigFile == "" {
		return nil, errors.New("A config file must be given with --conf")
	}

	var ysc config.YAMLConfig

	if err := ysc.LoadFromFile(c.flagConfigFile); err != nil {
		return nil, err
	}

	return &ysc, nil
}

func main() {
	app := &cobra.Command{}
	app.Use = "devicegrid"
	app.Short = "Cluster request and cross-site backup node"
	app.SilenceUsage = true
	app.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	// Global flags
	globalCmd := cmdGlobal{}
	app.PersistentFlags().StringVar(&globalCmd.flagConfigFile, "conf", "", "Config file to use in the node")

	startCmd := cmdStart{global: &globalCmd}
	app.AddCommand(startCmd.Command())

	journalCmd := cmdJournal{global: &globalCmd}
	app.AddCommand(journalCmd.Command())

	confCmd := cmdConf{}
	app.AddCommand(confCmd.Command())

	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
