package journal_test

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
	"errors"
	"io/ioutil"
	"os"
	"time"

	"github.com/PelionIoT/devicegrid/transport"
	"github.com/PelionIoT/devicegrid/xsite"
	. "github.com/PelionIoT/devicegrid/xsite/journal"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type failingSiteTransport struct {
	cause error
}

func (siteTransport *failingSiteTransport) SendToSite(ctx context.Context, site string, command interface{}) (interface{}, error) {
	return nil, siteTransport.cause
}

func failure(site string, message string) xsite.FailureRecord {
	return xsite.FailureRecord{
		Site:     site,
		Sync:     true,
		SendTime: time.Unix(1500000000, 0).UTC(),
		Duration: time.Millisecond * 20,
		Message:  message,
	}
}

func messages(entries []Entry) []string {
	result := make([]string, 0, len(entries))

	for _, entry := range entries {
		result = append(result, entry.Record.Message)
	}

	return result
}

var _ = Describe("Journal", func() {
	var directory string
	var journal *Journal

	BeforeEach(func() {
		var err error

		directory, err = ioutil.TempDir("", "devicegrid-journal-")

		Expect(err).Should(BeNil())

		journal = NewJournal(directory, 0)

		Expect(journal.Open()).Should(Succeed())
	})

	AfterEach(func() {
		journal.Close()
		os.RemoveAll(directory)
	})

	Describe("#Record", func() {
		It("Should assign increasing serial numbers", func() {
			Expect(journal.Record(failure("nyc", "a"))).Should(Succeed())
			Expect(journal.Record(failure("lon", "b"))).Should(Succeed())

			entries, err := journal.Query(Query{})

			Expect(err).Should(BeNil())
			Expect(entries).Should(HaveLen(2))
			Expect(entries[0].Serial).Should(Equal(uint64(1)))
			Expect(entries[1].Serial).Should(Equal(uint64(2)))
			Expect(entries[0].Record).Should(Equal(failure("nyc", "a")))
			Expect(journal.Size()).Should(Equal(uint64(2)))
		})

		It("Should keep serial numbers and size across a reopen", func() {
			Expect(journal.Record(failure("nyc", "a"))).Should(Succeed())
			Expect(journal.Close()).Should(Succeed())
			Expect(journal.Open()).Should(Succeed())
			Expect(journal.Record(failure("nyc", "b"))).Should(Succeed())

			entries, err := journal.Query(Query{Descending: true, Limit: 1})

			Expect(err).Should(BeNil())
			Expect(entries[0].Serial).Should(Equal(uint64(2)))
			Expect(journal.Size()).Should(Equal(uint64(2)))
		})

		It("Should fail once the journal is closed", func() {
			journal.Close()

			Expect(journal.Record(failure("nyc", "a"))).Should(Equal(EJournalClosed))
		})

		It("Should purge the oldest entries beyond its limit", func() {
			journal.Close()
			journal = NewJournal(directory, 2)

			Expect(journal.Open()).Should(Succeed())

			for _, message := range []string{"a", "b", "c"} {
				Expect(journal.Record(failure("nyc", message))).Should(Succeed())
			}

			entries, err := journal.Query(Query{})

			Expect(err).Should(BeNil())
			Expect(messages(entries)).Should(Equal([]string{"b", "c"}))
			Expect(journal.Size()).Should(Equal(uint64(2)))

			entries, err = journal.Query(Query{Site: "nyc"})

			Expect(err).Should(BeNil())
			Expect(messages(entries)).Should(Equal([]string{"b", "c"}))
		})
	})

	Describe("#Query", func() {
		BeforeEach(func() {
			for _, record := range []xsite.FailureRecord{failure("nyc", "a"), failure("nyc.east", "b"), failure("lon", "c"), failure("nyc", "d")} {
				Expect(journal.Record(record)).Should(Succeed())
			}
		})

		It("Should return only the entries of the requested site", func() {
			entries, err := journal.Query(Query{Site: "nyc"})

			Expect(err).Should(BeNil())
			Expect(messages(entries)).Should(Equal([]string{"a", "d"}))
		})

		It("Should return newest entries first when descending", func() {
			entries, err := journal.Query(Query{Descending: true, Limit: 3})

			Expect(err).Should(BeNil())
			Expect(messages(entries)).Should(Equal([]string{"d", "c", "b"}))
		})
	})

	Describe("#Purge", func() {
		It("Should delete the matched entries from every index", func() {
			Expect(journal.Record(failure("nyc", "a"))).Should(Succeed())
			Expect(journal.Record(failure("lon", "b"))).Should(Succeed())

			purged, err := journal.Purge(Query{Site: "nyc"})

			Expect(err).Should(BeNil())
			Expect(purged).Should(Equal(1))
			Expect(journal.Size()).Should(Equal(uint64(1)))

			entries, err := journal.Query(Query{})

			Expect(err).Should(BeNil())
			Expect(messages(entries)).Should(Equal([]string{"b"}))
		})
	})

	Context("When attached to a backup sender", func() {
		It("Should journal failed backups", func() {
			sender := xsite.NewBackupSender(&failingSiteTransport{cause: &transport.CommunicationError{Site: "nyc", Cause: errors.New("connection refused")}})
			sender.SetFailureJournal(journal)

			response := sender.Backup(context.Background(), []xsite.XSiteBackup{{SiteName: "nyc", Sync: true}}, "put")

			Expect(response.WaitForBackupToFinish(context.Background())).Should(Succeed())

			entries, err := journal.Query(Query{Site: "nyc"})

			Expect(err).Should(BeNil())
			Expect(entries).Should(HaveLen(1))
			Expect(entries[0].Record.Communication).Should(BeTrue())
		})
	})
})
