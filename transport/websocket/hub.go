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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/PelionIoT/devicegrid/address"
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/response"
	"github.com/PelionIoT/devicegrid/transport"
)

const RECONNECT_WAIT_MAX_SECONDS = 32
const HANDSHAKE_TIMEOUT = time.Second * 10

var EAlreadyConnected = errors.New("Peer already connected")
var EBadHandshake = errors.New("Peer did not introduce itself")

// CommandHandler applies a command sent by another member and returns the raw
// reply that is sent back to it
type CommandHandler func(ctx context.Context, sender address.Address, command json.RawMessage) *response.RawReply

// Hub is a cluster transport that keeps one websocket connection per member.
// A member joins the view when its connection completes the hello exchange
// and leaves it when the connection breaks.
type Hub struct {
	local        address.Address
	handler      CommandHandler
	dialer       *gorilla.Dialer
	upgrader     gorilla.Upgrader
	peerMapLock  sync.Mutex
	peerMap      map[address.Key]*Peer
	dialing      map[string]bool
	handlerLock  sync.RWMutex
	replyHandler transport.ReplyHandler
	listeners    []transport.MembershipListener
	ctx          context.Context
	cancel       func()
}

func NewHub(local address.Address, handler CommandHandler) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		local:   local,
		handler: handler,
		dialer: &gorilla.Dialer{
			HandshakeTimeout: HANDSHAKE_TIMEOUT,
		},
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		peerMap: make(map[address.Key]*Peer),
		dialing: make(map[string]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (hub *Hub) LocalAddress() address.Address {
	return hub.local
}

// Members returns the local member and every connected peer in address order
func (hub *Hub) Members() []address.Address {
	hub.peerMapLock.Lock()
	defer hub.peerMapLock.Unlock()

	return hub.members()
}

func (hub *Hub) members() []address.Address {
	members := address.NewSet(hub.local)

	for _, peer := range hub.peerMap {
		members.Add(peer.address)
	}

	return members.Sorted()
}

func (hub *Hub) SetReplyHandler(handler transport.ReplyHandler) {
	hub.handlerLock.Lock()
	defer hub.handlerLock.Unlock()

	hub.replyHandler = handler
}

func (hub *Hub) AddMembershipListener(listener transport.MembershipListener) {
	hub.handlerLock.Lock()
	defer hub.handlerLock.Unlock()

	hub.listeners = append(hub.listeners, listener)
}

// Send writes the command to every target. A target that is not connected
// gets a not found reply right away, so the request never waits for it.
func (hub *Hub) Send(ctx context.Context, requestID uint64, targets []address.Address, command interface{}) error {
	if hub.ctx.Err() != nil {
		return EClosed
	}

	encodedCommand, err := json.Marshal(command)

	if err != nil {
		return err
	}

	for _, target := range targets {
		if target.Equals(hub.local) {
			go hub.handleLocalCommand(ctx, requestID, encodedCommand)

			continue
		}

		hub.peerMapLock.Lock()
		peer, ok := hub.peerMap[target.Key()]
		hub.peerMapLock.Unlock()

		if !ok {
			Log.Debugf("Request %d targets %v which is not connected", requestID, target)

			hub.deliver(requestID, target, &response.RawReply{Kind: response.ReplyNotFound})

			continue
		}

		err := peer.write(&transport.Frame{
			Type:      transport.FrameCommand,
			RequestID: requestID,
			Sender:    hub.local,
			Command:   encodedCommand,
		})

		if err != nil {
			Log.Warningf("Unable to write request %d to peer %v: %v", requestID, target, err)

			hub.deliver(requestID, target, &response.RawReply{Kind: response.ReplyNotFound})
		}
	}

	return nil
}

// ServeHTTP upgrades an incoming connection from another member
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if hub.ctx.Err() != nil {
		http.Error(w, EClosed.Error(), http.StatusServiceUnavailable)

		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)

	if err != nil {
		Log.Warningf("Unable to upgrade peer connection from %s: %v", r.RemoteAddr, err)

		return
	}

	hub.Accept(conn)
}

func (hub *Hub) Accept(conn *gorilla.Conn) error {
	member, err := hub.handshake(conn)

	if err != nil {
		Log.Warningf("Unable to accept peer connection: %v", err)

		closeWSConnection(conn)

		return err
	}

	peer := newPeer(member, conn)

	if !hub.register(peer) {
		Log.Warningf("Rejected peer connection from %v because that peer is already connected", member)

		closeWSConnection(conn)

		return EAlreadyConnected
	}

	Log.Infof("Accepted peer connection from %v", member)

	go hub.serve(peer)

	return nil
}

// Connect keeps a connection to the member listening at url open until the
// hub is closed, reconnecting with exponential backoff
func (hub *Hub) Connect(url string) error {
	hub.peerMapLock.Lock()

	if hub.dialing[url] {
		hub.peerMapLock.Unlock()

		return EAlreadyConnected
	}

	hub.dialing[url] = true
	hub.peerMapLock.Unlock()

	go func() {
		defer func() {
			hub.peerMapLock.Lock()
			delete(hub.dialing, url)
			hub.peerMapLock.Unlock()
		}()

		reconnectWaitSeconds := 1

		for {
			peer, err := hub.connect(url)

			if err == nil {
				Log.Infof("Connected to peer %v at %s", peer.address, url)

				reconnectWaitSeconds = 1

				hub.serve(peer)

				if hub.ctx.Err() != nil {
					return
				}

				Log.Infof("Disconnected from peer %v: %v. Reconnecting...", peer.address, peer.errors())

				continue
			}

			Log.Warningf("Unable to connect to peer at %s: %v. Reconnecting in %ds...", url, err, reconnectWaitSeconds)

			select {
			case <-time.After(time.Second * time.Duration(reconnectWaitSeconds)):
			case <-hub.ctx.Done():
				Log.Debugf("Cancelled connection retry sequence for %s", url)

				return
			}

			if reconnectWaitSeconds < RECONNECT_WAIT_MAX_SECONDS {
				reconnectWaitSeconds *= 2
			}
		}
	}()

	return nil
}

func (hub *Hub) connect(url string) (*Peer, error) {
	conn, _, err := hub.dialer.Dial(url, nil)

	if err != nil {
		return nil, err
	}

	member, err := hub.handshake(conn)

	if err != nil {
		closeWSConnection(conn)

		return nil, err
	}

	peer := newPeer(member, conn)

	if !hub.register(peer) {
		closeWSConnection(conn)

		return nil, EAlreadyConnected
	}

	return peer, nil
}

// Close disconnects every peer and stops reconnecting
func (hub *Hub) Close() {
	hub.cancel()

	hub.peerMapLock.Lock()
	peers := make([]*Peer, 0, len(hub.peerMap))

	for _, peer := range hub.peerMap {
		peers = append(peers, peer)
	}

	hub.peerMapLock.Unlock()

	for _, peer := range peers {
		peer.close()
	}
}

func (hub *Hub) handshake(conn *gorilla.Conn) (address.Address, error) {
	var hello transport.Frame

	if err := conn.WriteJSON(&transport.Frame{Type: transport.FrameHello, Sender: hub.local}); err != nil {
		return address.Address{}, err
	}

	conn.SetReadDeadline(time.Now().Add(HANDSHAKE_TIMEOUT))

	if err := conn.ReadJSON(&hello); err != nil {
		return address.Address{}, err
	}

	conn.SetReadDeadline(time.Time{})

	if hello.Type != transport.FrameHello || hello.Sender.IsZero() || hello.Sender.Equals(hub.local) {
		return address.Address{}, EBadHandshake
	}

	return hello.Sender, nil
}

func (hub *Hub) serve(peer *Peer) {
	peer.readLoop(func(frame *transport.Frame) {
		hub.dispatch(peer, frame)
	})

	peer.close()
	hub.unregister(peer)
}

func (hub *Hub) dispatch(peer *Peer, frame *transport.Frame) {
	switch frame.Type {
	case transport.FrameCommand:
		go hub.handleRemoteCommand(peer, frame.RequestID, frame.Command)
	case transport.FrameReply:
		hub.deliver(frame.RequestID, peer.address, transport.DecodeReply(frame.Reply))
	default:
		Log.Warningf("Ignoring frame of type %s from peer %v", frame.Type, peer.address)
	}
}

func (hub *Hub) handleRemoteCommand(peer *Peer, requestID uint64, command json.RawMessage) {
	reply := hub.encodeReply(hub.invoke(hub.ctx, peer.address, command))

	err := peer.write(&transport.Frame{
		Type:      transport.FrameReply,
		RequestID: requestID,
		Sender:    hub.local,
		Reply:     reply,
	})

	if err != nil {
		Log.Warningf("Unable to reply to request %d from peer %v: %v", requestID, peer.address, err)
	}
}

// handleLocalCommand passes the reply through the wire encoding so local and
// remote replies carry values of the same shape
func (hub *Hub) handleLocalCommand(ctx context.Context, requestID uint64, command json.RawMessage) {
	reply := hub.encodeReply(hub.invoke(ctx, hub.local, command))

	hub.deliver(requestID, hub.local, transport.DecodeReply(reply))
}

func (hub *Hub) invoke(ctx context.Context, sender address.Address, command json.RawMessage) *response.RawReply {
	if hub.handler == nil {
		return &response.RawReply{Kind: response.ReplyException, Err: &response.AvailabilityError{Message: "no command handler is installed"}}
	}

	return hub.handler(ctx, sender, command)
}

func (hub *Hub) encodeReply(raw *response.RawReply) *transport.WireReply {
	reply, err := transport.EncodeReply(raw)

	if err != nil {
		Log.Errorf("Unable to encode reply: %v", err)

		reply, _ = transport.EncodeReply(&response.RawReply{Kind: response.ReplyException, Err: err})
	}

	return reply
}

func (hub *Hub) deliver(requestID uint64, sender address.Address, raw *response.RawReply) {
	hub.handlerLock.RLock()
	replyHandler := hub.replyHandler
	hub.handlerLock.RUnlock()

	if replyHandler == nil {
		Log.Debugf("Dropping reply to request %d from %v since no reply handler is set", requestID, sender)

		return
	}

	replyHandler.Receive(requestID, sender, raw)
}

func (hub *Hub) register(peer *Peer) bool {
	hub.peerMapLock.Lock()

	if _, ok := hub.peerMap[peer.address.Key()]; ok || hub.ctx.Err() != nil {
		hub.peerMapLock.Unlock()

		return false
	}

	Log.Debugf("Register peer %v", peer.address)

	hub.peerMap[peer.address.Key()] = peer
	members := hub.members()
	hub.peerMapLock.Unlock()

	hub.notifyMembershipChange(members)

	return true
}

func (hub *Hub) unregister(peer *Peer) {
	hub.peerMapLock.Lock()

	if current, ok := hub.peerMap[peer.address.Key()]; !ok || current != peer {
		hub.peerMapLock.Unlock()

		return
	}

	Log.Debugf("Unregister peer %v", peer.address)

	delete(hub.peerMap, peer.address.Key())
	members := hub.members()
	hub.peerMapLock.Unlock()

	hub.notifyMembershipChange(members)
}

func (hub *Hub) notifyMembershipChange(members []address.Address) {
	hub.handlerLock.RLock()
	listeners := append([]transport.MembershipListener{}, hub.listeners...)
	hub.handlerLock.RUnlock()

	for _, listener := range listeners {
		listener.OnMembershipChange(members)
	}
}
