package journal

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
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	levelErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/xsite"
)

var (
	BY_SERIAL_NUMBER_PREFIX     = []byte{0}
	BY_SITE_AND_SERIAL_PREFIX   = []byte{1}
	SEQUENTIAL_COUNTER_PREFIX   = []byte{2}
	CURRENT_SIZE_COUNTER_PREFIX = []byte{3}
)

var EJournalClosed = errors.New("Journal is closed")

func serialBytes(serial uint64) []byte {
	bytes := make([]byte, 8)

	binary.BigEndian.PutUint64(bytes, serial)

	return bytes
}

type Entry struct {
	Serial uint64              `json:"serial"`
	Record xsite.FailureRecord `json:"record"`
}

func (entry *Entry) indexBySerial() []byte {
	return append(append([]byte{}, BY_SERIAL_NUMBER_PREFIX...), serialBytes(entry.Serial)...)
}

func (entry *Entry) indexBySiteAndSerial() []byte {
	return append(sitePrefix(entry.Record.Site), serialBytes(entry.Serial)...)
}

// Site names are length prefixed so no site's prefix is the prefix of another
func sitePrefix(site string) []byte {
	length := make([]byte, 2)

	binary.BigEndian.PutUint16(length, uint16(len(site)))

	result := make([]byte, 0, len(BY_SITE_AND_SERIAL_PREFIX)+len(length)+len(site))
	result = append(result, BY_SITE_AND_SERIAL_PREFIX...)
	result = append(result, length...)
	result = append(result, site...)

	return result
}

type Query struct {
	// Only entries of this site when set
	Site string
	// Newest entries first
	Descending bool
	// Zero means no limit
	Limit int
}

// Journal is a leveldb backed log of failed backups. Once it holds more than
// its limit of entries the oldest ones are purged.
type Journal struct {
	file        string
	options     *opt.Options
	db          *leveldb.DB
	logLock     sync.Mutex
	nextID      uint64
	currentSize uint64
	entryLimit  uint64
}

func NewJournal(file string, entryLimit uint64) *Journal {
	return &Journal{
		file:       file,
		entryLimit: entryLimit,
	}
}

func (journal *Journal) Open() error {
	journal.Close()

	db, err := leveldb.OpenFile(journal.file, journal.options)

	if err != nil {
		if levelErrors.IsCorrupted(err) {
			Log.Criticalf("LevelDB database is corrupted: %v", err.Error())

			return ECorrupted
		}

		return err
	}

	journal.logLock.Lock()
	defer journal.logLock.Unlock()

	journal.db = db
	journal.nextID = journal.counter(SEQUENTIAL_COUNTER_PREFIX) + 1
	journal.currentSize = journal.counter(CURRENT_SIZE_COUNTER_PREFIX)

	return nil
}

func (journal *Journal) Close() error {
	journal.logLock.Lock()
	defer journal.logLock.Unlock()

	if journal.db == nil {
		return nil
	}

	err := journal.db.Close()
	journal.db = nil

	return err
}

func (journal *Journal) counter(key []byte) uint64 {
	value, err := journal.db.Get(key, nil)

	if err != nil || len(value) != 8 {
		return 0
	}

	return binary.BigEndian.Uint64(value)
}

func (journal *Journal) Size() uint64 {
	journal.logLock.Lock()
	defer journal.logLock.Unlock()

	return journal.currentSize
}

// Record appends record to the journal
func (journal *Journal) Record(record xsite.FailureRecord) error {
	// entries are written one at a time so serial numbers on disk only grow
	journal.logLock.Lock()
	defer journal.logLock.Unlock()

	if journal.db == nil {
		return EJournalClosed
	}

	entry := &Entry{Serial: journal.nextID, Record: record}
	marshaledEntry, err := json.Marshal(entry)

	if err != nil {
		Log.Errorf("Could not marshal journal entry to JSON: %v", err.Error())

		return EStorage
	}

	batch := new(leveldb.Batch)
	batch.Put(entry.indexBySerial(), marshaledEntry)
	batch.Put(entry.indexBySiteAndSerial(), marshaledEntry)
	batch.Put(SEQUENTIAL_COUNTER_PREFIX, serialBytes(entry.Serial))
	batch.Put(CURRENT_SIZE_COUNTER_PREFIX, serialBytes(journal.currentSize+1))

	if err := journal.db.Write(batch, nil); err != nil {
		Log.Errorf("Storage driver error in Record(%v): %s", record, err.Error())

		return EStorage
	}

	journal.nextID++
	journal.currentSize++

	return journal.rotate()
}

func (journal *Journal) Query(query Query) ([]Entry, error) {
	journal.logLock.Lock()
	defer journal.logLock.Unlock()

	if journal.db == nil {
		return nil, EJournalClosed
	}

	return journal.query(query)
}

// Purge deletes the entries matched by query
func (journal *Journal) Purge(query Query) (int, error) {
	journal.logLock.Lock()
	defer journal.logLock.Unlock()

	if journal.db == nil {
		return 0, EJournalClosed
	}

	entries, err := journal.query(query)

	if err != nil {
		return 0, err
	}

	if err := journal.purge(entries); err != nil {
		return 0, err
	}

	return len(entries), nil
}

func (journal *Journal) query(query Query) ([]Entry, error) {
	prefix := BY_SERIAL_NUMBER_PREFIX

	if query.Site != "" {
		prefix = sitePrefix(query.Site)
	}

	snapshot, err := journal.db.GetSnapshot()

	if err != nil {
		Log.Errorf("Storage driver error in Query(%v): %s", query, err.Error())

		return nil, EStorage
	}

	defer snapshot.Release()

	it := snapshot.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	entries := make([]Entry, 0)

	for ok := first(it, query.Descending); ok; ok = next(it, query.Descending) {
		var entry Entry

		if err := json.Unmarshal(it.Value(), &entry); err != nil {
			Log.Errorf("Storage driver error in Query() key = %v, value = %v: %s", it.Key(), it.Value(), err.Error())

			return nil, EStorage
		}

		entries = append(entries, entry)

		if query.Limit > 0 && len(entries) == query.Limit {
			break
		}
	}

	if it.Error() != nil {
		Log.Errorf("Storage driver error in Query(%v): %s", query, it.Error())

		return nil, EStorage
	}

	return entries, nil
}

func first(it iterator.Iterator, descending bool) bool {
	if descending {
		return it.Last()
	}

	return it.First()
}

func next(it iterator.Iterator, descending bool) bool {
	if descending {
		return it.Prev()
	}

	return it.Next()
}

func (journal *Journal) purge(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)

	for _, entry := range entries {
		batch.Delete(entry.indexBySerial())
		batch.Delete(entry.indexBySiteAndSerial())
	}

	batch.Put(CURRENT_SIZE_COUNTER_PREFIX, serialBytes(journal.currentSize-uint64(len(entries))))

	if err := journal.db.Write(batch, nil); err != nil {
		Log.Errorf("Storage driver error in purge(): %s", err.Error())

		return EStorage
	}

	journal.currentSize -= uint64(len(entries))

	return nil
}

func (journal *Journal) rotate() error {
	if journal.entryLimit == 0 || journal.currentSize <= journal.entryLimit {
		return nil
	}

	oldest, err := journal.query(Query{Limit: int(journal.currentSize - journal.entryLimit)})

	if err != nil {
		return err
	}

	return journal.purge(oldest)
}
