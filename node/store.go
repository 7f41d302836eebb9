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
	"encoding/json"
	"sort"
	"sync"
)

// Store is the local replica of the keys this member holds
type Store struct {
	lock    sync.RWMutex
	entries map[string]json.RawMessage
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]json.RawMessage),
	}
}

func (store *Store) Get(key string) (json.RawMessage, bool) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	value, ok := store.entries[key]

	return value, ok
}

func (store *Store) Put(key string, value json.RawMessage) {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.entries[key] = append(json.RawMessage{}, value...)
}

// Delete reports whether the key was present
func (store *Store) Delete(key string) bool {
	store.lock.Lock()
	defer store.lock.Unlock()

	_, ok := store.entries[key]
	delete(store.entries, key)

	return ok
}

func (store *Store) Keys() []string {
	store.lock.RLock()
	keys := make([]string, 0, len(store.entries))

	for key := range store.entries {
		keys = append(keys, key)
	}

	store.lock.RUnlock()

	sort.Strings(keys)

	return keys
}

// Apply executes command against the store. For a get it returns the value
// and whether the key is present. Writes return the previous presence of
// the key.
func (store *Store) Apply(command Command) (json.RawMessage, bool) {
	switch command.Op {
	case OpGet:
		return store.Get(command.Key)
	case OpPut:
		_, existed := store.Get(command.Key)
		store.Put(command.Key, command.Value)

		return nil, existed
	case OpDelete:
		return nil, store.Delete(command.Key)
	}

	return nil, false
}
