package websocket

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
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/transport"
)

var EPeerClosed = errors.New("Peer closed")

// Peer is one websocket connection to another member of the cluster
type Peer struct {
	address    address.Address
	connection *gorilla.Conn
	// csLock orders writes to the connection, including the close message
	csLock   sync.Mutex
	closed   bool
	doneChan chan struct{}
	result   error
}

func newPeer(member address.Address, connection *gorilla.Conn) *Peer {
	return &Peer{
		address:    member,
		connection: connection,
		doneChan:   make(chan struct{}),
	}
}

func (peer *Peer) Address() address.Address {
	return peer.address
}

// errors returns why the read loop stopped
func (peer *Peer) errors() error {
	return peer.result
}

func (peer *Peer) write(frame *transport.Frame) error {
	peer.csLock.Lock()
	defer peer.csLock.Unlock()

	if peer.closed {
		return EPeerClosed
	}

	return peer.connection.WriteJSON(frame)
}

// readLoop delivers incoming frames to fn until the connection breaks. It
// closes doneChan on return.
func (peer *Peer) readLoop(fn func(frame *transport.Frame)) {
	defer close(peer.doneChan)

	for {
		var frame transport.Frame

		err := peer.connection.ReadJSON(&frame)

		if err != nil {
			if gorilla.IsCloseError(err, gorilla.CloseNormalClosure) {
				Log.Infof("Received a normal websocket close message from peer %v", peer.address)
			} else {
				Log.Errorf("Connection to peer %v broke: %v", peer.address, err)
			}

			peer.result = err

			return
		}

		fn(&frame)
	}
}

func (peer *Peer) close() {
	peer.csLock.Lock()

	if peer.closed {
		peer.csLock.Unlock()

		return
	}

	peer.closed = true
	err := peer.connection.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
	peer.csLock.Unlock()

	if err == nil {
		select {
		case <-peer.doneChan:
		case <-time.After(time.Second):
		}
	}

	peer.connection.Close()
}

func closeWSConnection(conn *gorilla.Conn) {
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err := conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))

	if err == nil {
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	conn.Close()
}
