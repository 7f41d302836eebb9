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
	"bytes"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Key identifies a member. Two addresses with the same key are the same member
// no matter what topology labels they carry.
type Key [16]byte

func (key Key) String() string {
	return uuid.UUID(key).String()
}

// Address is the identity of one process participating in the cluster. It is
// immutable once constructed.
type Address struct {
	id      uuid.UUID
	name    string
	version string
	site    string
	rack    string
	machine string
}

type Option func(*Address)

func WithName(name string) Option {
	return func(address *Address) {
		address.name = name
	}
}

func WithVersion(version string) Option {
	return func(address *Address) {
		address.version = version
	}
}

func WithSite(site string) Option {
	return func(address *Address) {
		address.site = site
	}
}

func WithRack(rack string) Option {
	return func(address *Address) {
		address.rack = rack
	}
}

func WithMachine(machine string) Option {
	return func(address *Address) {
		address.machine = machine
	}
}

func New(options ...Option) Address {
	return FromUUID(uuid.New(), options...)
}

func FromUUID(id uuid.UUID, options ...Option) Address {
	address := Address{id: id}

	for _, option := range options {
		option(&address)
	}

	if address.name != "" {
		RegisterName(address.Key(), address.name)
	}

	return address
}

func Parse(s string, options ...Option) (Address, error) {
	id, err := uuid.Parse(s)

	if err != nil {
		return Address{}, err
	}

	return FromUUID(id, options...), nil
}

var localAddress Address
var localAddressOnce sync.Once

// Local returns the ephemeral address used for local-only addressing. It is
// created on first use and stays the same for the lifetime of the process.
func Local() Address {
	localAddressOnce.Do(func() {
		localAddress = New(WithName("local"))
	})

	return localAddress
}

func (address Address) Key() Key {
	return Key(address.id)
}

func (address Address) UUID() uuid.UUID {
	return address.id
}

func (address Address) IsZero() bool {
	return address.id == uuid.Nil
}

func (address Address) Name() string {
	return address.name
}

func (address Address) Version() string {
	return address.version
}

func (address Address) Site() string {
	return address.site
}

func (address Address) Rack() string {
	return address.rack
}

func (address Address) Machine() string {
	return address.machine
}

func (address Address) Equals(other Address) bool {
	return address.id == other.id
}

// Compare orders addresses by their unique id. It returns -1, 0 or 1.
func (address Address) Compare(other Address) int {
	return bytes.Compare(address.id[:], other.id[:])
}

func (address Address) IsSameSite(other Address) bool {
	return address.site != "" && other.site != "" && address.site == other.site
}

func (address Address) IsSameRack(other Address) bool {
	return address.IsSameSite(other) && address.rack != "" && other.rack != "" && address.rack == other.rack
}

func (address Address) IsSameMachine(other Address) bool {
	return address.IsSameRack(other) && address.machine != "" && other.machine != "" && address.machine == other.machine
}

func (address Address) String() string {
	if name, ok := LookupName(address.Key()); ok {
		return name
	}

	return address.id.String()
}

type jsonAddress struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Site    string `json:"site,omitempty"`
	Rack    string `json:"rack,omitempty"`
	Machine string `json:"machine,omitempty"`
}

func (address Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonAddress{
		ID:      address.id.String(),
		Name:    address.name,
		Version: address.version,
		Site:    address.site,
		Rack:    address.rack,
		Machine: address.machine,
	})
}

func (address *Address) UnmarshalJSON(encoded []byte) error {
	var decoded jsonAddress

	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return err
	}

	parsed, err := Parse(decoded.ID, WithName(decoded.Name), WithVersion(decoded.Version), WithSite(decoded.Site), WithRack(decoded.Rack), WithMachine(decoded.Machine))

	if err != nil {
		return err
	}

	*address = parsed

	return nil
}
