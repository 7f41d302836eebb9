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
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/clusterio"
	"github.com/PelionIoT/devicegrid/collector"
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/metrics"
	"github.com/PelionIoT/devicegrid/request"
	"github.com/PelionIoT/devicegrid/response"
	"github.com/PelionIoT/devicegrid/routes"
	"github.com/PelionIoT/devicegrid/transport/bridge"
	"github.com/PelionIoT/devicegrid/transport/websocket"
	"github.com/PelionIoT/devicegrid/xsite"
	"github.com/PelionIoT/devicegrid/xsite/journal"
)

const ShutdownTimeout = time.Second * 5

var ENodeRunning = errors.New("Node is already running")

// GridNode is one member of the grid. It replicates writes to a quorum of
// the other members over the cluster hub and backs them up to the configured
// sites over the HTTP bridge.
type GridNode struct {
	options    NodeInitializationOptions
	store      *Store
	hub        *websocket.Hub
	repository *request.Repository
	agent      *clusterio.Agent
	siteClient *bridge.Client
	sender     *xsite.BackupSender
	journal    *journal.Journal
	metrics    *metrics.Metrics
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
	shutdown   chan int
	ready      chan struct{}
	lock       sync.Mutex
}

func New() *GridNode {
	return &GridNode{
		store: NewStore(),
		ready: make(chan struct{}),
	}
}

// Ready is closed once the node accepts connections. Every Stop replaces it
// with a channel for the next run.
func (node *GridNode) Ready() <-chan struct{} {
	node.lock.Lock()
	defer node.lock.Unlock()

	return node.ready
}

func (node *GridNode) Addr() net.Addr {
	node.lock.Lock()
	defer node.lock.Unlock()

	if node.listener == nil {
		return nil
	}

	return node.listener.Addr()
}

func (node *GridNode) LocalAddress() address.Address {
	return node.options.Local
}

func (node *GridNode) Store() *Store {
	return node.store
}

func (node *GridNode) BackupSender() *xsite.BackupSender {
	return node.sender
}

func (node *GridNode) Metrics() *metrics.Metrics {
	return node.metrics
}

func (node *GridNode) Members() []address.Address {
	return node.hub.Members()
}

func (node *GridNode) Start(options NodeInitializationOptions) error {
	node.lock.Lock()

	if node.isRunning {
		node.lock.Unlock()

		return ENodeRunning
	}

	if err := node.initialize(options); err != nil {
		node.lock.Unlock()

		return err
	}

	listener, err := net.Listen("tcp", options.ListenAddress())

	if err != nil {
		Log.Criticalf("Local node %v unable to listen at %s: %v", options.Local, options.ListenAddress(), err)

		if node.journal != nil {
			node.journal.Close()
		}

		node.lock.Unlock()

		return err
	}

	node.listener = listener
	node.httpServer = &http.Server{Handler: node.router()}
	node.shutdown = make(chan int)
	node.isRunning = true
	ready := node.ready
	node.lock.Unlock()

	serverStopResult := make(chan error, 1)

	go func() {
		serverStopResult <- node.httpServer.Serve(listener)
	}()

	for _, peer := range options.Peers {
		node.hub.Connect(peer)
	}

	Log.Infof("Local node %v listening at %s", options.Local, listener.Addr())

	close(ready)

	select {
	case <-node.shutdown:
		return nil
	case err := <-serverStopResult:
		Log.Errorf("Local node %v HTTP server stopped: %v", options.Local, err)

		node.Stop()

		return err
	}
}

func (node *GridNode) initialize(options NodeInitializationOptions) error {
	node.options = options
	node.metrics = metrics.NewMetrics()
	node.repository = request.NewRepository()
	node.repository.SetObserver(node.metrics)
	node.hub = websocket.NewHub(options.Local, node.handleClusterCommand)
	node.agent = clusterio.NewAgent(node.hub, node.repository, request.NewTimerScheduler())
	node.agent.Timeout = options.RequestTimeout
	node.siteClient = bridge.NewClient()
	node.sender = xsite.NewBackupSender(node.siteClient)

	for _, backup := range options.Backups {
		node.siteClient.AddSite(backup.Backup.SiteName, backup.URL)
		node.sender.SetTakeOffline(backup.Backup.SiteName, backup.TakeOffline)
	}

	node.sender.AddSiteCompletedListener(node.metrics.SiteCompleted)
	node.sender.AddSiteCompletedListener(func(backup xsite.XSiteBackup, sendTime time.Time, duration time.Duration, cause error) {
		node.metrics.RecordOfflineStatus(node.sender)
	})

	node.metrics.RecordOfflineStatus(node.sender)

	if options.JournalEnabled() {
		node.journal = journal.NewJournal(options.JournalFile, options.JournalEventLimit)

		if err := node.journal.Open(); err != nil {
			Log.Criticalf("Local node %v unable to open failure journal at %s: %v", options.Local, options.JournalFile, err)

			node.journal = nil

			return err
		}

		node.sender.SetFailureJournal(node.journal)
	}

	return nil
}

func (node *GridNode) router() *mux.Router {
	router := mux.NewRouter()
	facade := &GridNodeFacade{node: node}

	router.Handle(ClusterEndpoint, node.hub)
	router.Handle(MetricsEndpoint, node.metrics.Handler())
	bridge.NewRelay(node.options.Local.Site(), node.handleSiteCommand).Attach(router)
	(&routes.KeysEndpoint{GridFacade: facade}).Attach(router)
	(&routes.SitesEndpoint{GridFacade: facade}).Attach(router)

	return router
}

func (node *GridNode) Stop() {
	node.lock.Lock()
	defer node.lock.Unlock()

	node.stop()
}

func (node *GridNode) stop() {
	if !node.isRunning {
		return
	}

	node.isRunning = false
	node.hub.Close()
	node.agent.CancelAll()

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	node.httpServer.Shutdown(ctx)
	cancel()

	if node.journal != nil {
		node.journal.Close()
	}

	close(node.shutdown)
	node.ready = make(chan struct{})
}

func (node *GridNode) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if value, ok := node.store.Get(key); ok {
		return value, nil
	}

	result, err := node.agent.Invoke(ctx, nil, Command{Op: OpGet, Key: key}, collector.NewClusteredReadCollector(), 0)

	if err != nil {
		return nil, err
	}

	if result == nil || result == collector.UnsureResult || result == collector.NotFoundResult {
		return nil, ENoSuchKey
	}

	if value, ok := result.(json.RawMessage); ok {
		return value, nil
	}

	return json.Marshal(result)
}

func (node *GridNode) Put(ctx context.Context, key string, value json.RawMessage) error {
	return node.write(ctx, Command{Op: OpPut, Key: key, Value: value})
}

func (node *GridNode) Delete(ctx context.Context, key string) error {
	return node.write(ctx, Command{Op: OpDelete, Key: key})
}

func (node *GridNode) write(ctx context.Context, command Command) error {
	if _, err := node.applyReplicated(ctx, command); err != nil {
		return err
	}

	backups := node.options.XSiteBackups()

	if len(backups) == 0 {
		return nil
	}

	retry := xsite.NewRetryOnFailureXSiteCommand(backups, command, node.options.Retry.Policy())

	return retry.Execute(ctx, node.sender, node.options.Retry.Wait())
}

// applyReplicated applies a write locally and replicates it to a quorum of
// members. The local write is undone when the quorum is not reached.
func (node *GridNode) applyReplicated(ctx context.Context, command Command) (bool, error) {
	previous, existed := node.store.Get(command.Key)
	_, ok := node.store.Apply(command)

	if err := node.replicate(ctx, command); err != nil {
		Log.Warningf("Unable to replicate %s of key %s to a quorum of members: %v", command.Op, command.Key, err)

		if existed {
			node.store.Put(command.Key, previous)
		} else {
			node.store.Delete(command.Key)
		}

		return ok, err
	}

	return ok, nil
}

// replicate is a no-op while this node has no connected members
func (node *GridNode) replicate(ctx context.Context, command Command) error {
	if len(node.hub.Members()) <= 1 {
		return nil
	}

	_, err := node.agent.InvokeQuorum(ctx, nil, command, 0)

	return err
}

// handleClusterCommand answers a command sent by another member. A member
// that does not hold a key cannot tell whether the key exists.
func (node *GridNode) handleClusterCommand(ctx context.Context, sender address.Address, encoded json.RawMessage) *response.RawReply {
	command, err := DecodeCommand(encoded)

	if err != nil {
		Log.Warningf("Received malformed command from %v: %v", sender, err)

		return &response.RawReply{Kind: response.ReplyException, Err: err}
	}

	value, ok := node.store.Apply(command)

	if command.Op == OpGet && !ok {
		return &response.RawReply{Kind: response.ReplyUnsure}
	}

	if command.Op == OpGet {
		return &response.RawReply{Kind: response.ReplyValue, Value: value}
	}

	return &response.RawReply{Kind: response.ReplyValue}
}

// handleSiteCommand applies a command backed up by another site and
// replicates writes inside this site. Backups are never forwarded to further
// sites.
func (node *GridNode) handleSiteCommand(ctx context.Context, encoded json.RawMessage) (interface{}, error) {
	command, err := DecodeCommand(encoded)

	if err != nil {
		return nil, err
	}

	if command.IsWrite() {
		ok, err := node.applyReplicated(ctx, command)

		if err != nil {
			return nil, err
		}

		return SiteReply{Found: ok}, nil
	}

	value, ok := node.store.Apply(command)

	return SiteReply{Found: ok, Value: value}, nil
}
