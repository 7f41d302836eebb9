package node_test

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

	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/node"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Command", func() {
	DescribeTable("DecodeCommand() should reject invalid commands",
		func(encoded string, expected error) {
			_, err := DecodeCommand([]byte(encoded))

			Expect(err).Should(Equal(expected))
		},
		Entry("not JSON", `{"op":`, EMalformed),
		Entry("unknown op", `{"op":"merge","key":"a"}`, EMalformed),
		Entry("missing key", `{"op":"get"}`, EEmpty),
		Entry("put without a value", `{"op":"put","key":"a"}`, EEmpty),
	)

	It("Should decode a put with its raw value", func() {
		command, err := DecodeCommand([]byte(`{"op":"put","key":"a","value":{"x":[1,2]}}`))

		Expect(err).Should(BeNil())
		Expect(command.Op).Should(Equal(OpPut))
		Expect(command.Key).Should(Equal("a"))
		Expect(string(command.Value)).Should(Equal(`{"x":[1,2]}`))
		Expect(command.IsWrite()).Should(BeTrue())
	})

	It("Should survive an encode and decode round trip", func() {
		encoded, err := json.Marshal(Command{Op: OpDelete, Key: "a"})

		Expect(err).Should(BeNil())

		command, err := DecodeCommand(encoded)

		Expect(err).Should(BeNil())
		Expect(command).Should(Equal(Command{Op: OpDelete, Key: "a"}))
		Expect(command.IsWrite()).Should(BeTrue())
	})
})

var _ = Describe("Store", func() {
	var store *Store

	BeforeEach(func() {
		store = NewStore()
	})

	It("Should report the previous presence of a key on writes", func() {
		_, existed := store.Apply(Command{Op: OpPut, Key: "a", Value: json.RawMessage(`1`)})
		Expect(existed).Should(BeFalse())

		_, existed = store.Apply(Command{Op: OpPut, Key: "a", Value: json.RawMessage(`2`)})
		Expect(existed).Should(BeTrue())

		value, ok := store.Apply(Command{Op: OpGet, Key: "a"})
		Expect(ok).Should(BeTrue())
		Expect(string(value)).Should(Equal("2"))

		_, existed = store.Apply(Command{Op: OpDelete, Key: "a"})
		Expect(existed).Should(BeTrue())

		_, ok = store.Apply(Command{Op: OpGet, Key: "a"})
		Expect(ok).Should(BeFalse())
	})

	It("Should copy values so callers cannot mutate the store", func() {
		value := json.RawMessage(`"abc"`)

		store.Put("a", value)
		value[1] = 'x'

		stored, _ := store.Get("a")

		Expect(string(stored)).Should(Equal(`"abc"`))
	})

	It("Should list keys in order", func() {
		store.Put("b", json.RawMessage(`1`))
		store.Put("a", json.RawMessage(`1`))

		Expect(store.Keys()).Should(Equal([]string{"a", "b"}))
	})
})
