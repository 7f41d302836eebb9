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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/PelionIoT/devicegrid/xsite/journal"
)

type cmdJournal struct {
	global *cmdGlobal

	flagSite       string
	flagLimit      int
	flagDescending bool
	flagPurge      bool
}

func (c *cmdJournal) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "journal"
	cmd.Short = "List or purge journaled backup failures"
	cmd.Long = "List or purge the backup failures recorded in the journal of a stopped node."
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run

	cmd.Flags().StringVar(&c.flagSite, "site", "", "Only entries of this site")
	cmd.Flags().IntVar(&c.flagLimit, "limit", 0, "Maximum number of entries, 0 for all")
	cmd.Flags().BoolVar(&c.flagDescending, "descending", false, "Newest entries first")
	cmd.Flags().BoolVar(&c.flagPurge, "purge", false, "Delete the selected entries instead of listing them")

	return cmd
}

func (c *cmdJournal) Run(cmd *cobra.Command, args []string) error {
	if c.flagLimit < 0 {
		return errors.New("--limit must not be negative")
	}

	ysc, err := c.global.loadConfig()
	if err != nil {
		return err
	}

	if ysc.Journal == nil {
		return errors.New("The config file does not configure a journal")
	}

	failureJournal := journal.NewJournal(ysc.Journal.DBFile, ysc.Journal.EventLimit)

	err = failureJournal.Open()
	if err != nil {
		return err
	}

	defer failureJournal.Close()

	query := journal.Query{Site: c.flagSite, Descending: c.flagDescending, Limit: c.flagLimit}

	if c.flagPurge {
		purged, err := failureJournal.Purge(query)
		if err != nil {
			return err
		}

		fmt.Printf("Purged %d entries\n", purged)

		return nil
	}

	entries, err := failureJournal.Query(query)
	if err != nil {
		return err
	}

	renderEntries(entries)

	return nil
}

func renderEntries(entries []journal.Entry) {
	data := [][]string{}

	for _, entry := range entries {
		mode := "async"
		if entry.Record.Sync {
			mode = "sync"
		}

		communication := "no"
		if entry.Record.Communication {
			communication = "yes"
		}

		data = append(data, []string{
			strconv.FormatUint(entry.Serial, 10),
			entry.Record.Site,
			mode,
			entry.Record.SendTime.Format(time.RFC3339),
			entry.Record.Duration.String(),
			communication,
			entry.Record.Message,
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetRowLine(true)
	table.SetHeader([]string{"SERIAL", "SITE", "MODE", "SENT", "DURATION", "COMMUNICATION", "MESSAGE"})
	table.AppendBulk(data)
	table.Render()
}
