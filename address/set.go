package address

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
	"sort"
)

// Set is an unordered collection of members keyed by unique id
type Set map[Key]Address

func NewSet(addresses ...Address) Set {
	set := make(Set, len(addresses))

	for _, address := range addresses {
		set.Add(address)
	}

	return set
}

func (set Set) Add(address Address) {
	set[address.Key()] = address
}

func (set Set) Remove(address Address) {
	delete(set, address.Key())
}

func (set Set) Contains(address Address) bool {
	_, ok := set[address.Key()]

	return ok
}

// Sorted returns the members in Compare order
func (set Set) Sorted() []Address {
	addresses := make([]Address, 0, len(set))

	for _, address := range set {
		addresses = append(addresses, address)
	}

	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].Compare(addresses[j]) < 0
	})

	return addresses
}
