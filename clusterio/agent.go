package clusterio

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
	"time"

	"github.com/PelionIoT/devicegrid/address"
	"github.com/PelionIoT/devicegrid/collector"
	. "github.com/PelionIoT/devicegrid/error"
	. "github.com/PelionIoT/devicegrid/logging"
	"github.com/PelionIoT/devicegrid/request"
	"github.com/PelionIoT/devicegrid/response"
	"github.com/PelionIoT/devicegrid/transport"
)

type Agent struct {
	Transport  transport.ClusterTransport
	Repository *request.Repository
	Scheduler  request.Scheduler
	// Used when a call passes a zero timeout
	Timeout time.Duration
}

// NewAgent wires the agent in as the reply handler and a membership listener
// of clusterTransport
func NewAgent(clusterTransport transport.ClusterTransport, repository *request.Repository, scheduler request.Scheduler) *Agent {
	agent := &Agent{
		Transport:  clusterTransport,
		Repository: repository,
		Scheduler:  scheduler,
	}

	clusterTransport.SetReplyHandler(agent)
	clusterTransport.AddMembershipListener(agent)

	return agent
}

func (agent *Agent) InvokeAsync(ctx context.Context, targets []address.Address, command interface{}, responseCollector collector.ResponseCollector, timeout time.Duration) *request.Request {
	if targets == nil {
		targets = agent.remoteMembers()
	}

	req := agent.Repository.NewRequest(responseCollector, targets)

	if req.IsDone() {
		return req
	}

	if timeout == 0 {
		timeout = agent.Timeout
	}

	if timeout > 0 {
		req.SetTimeout(agent.Scheduler, timeout)
	}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				if req.Cancel(ctx.Err()) {
					Log.Debugf("Request %d cancelled by its caller: %v", req.ID(), ctx.Err())
				}
			case <-req.Done():
			}
		}()
	}

	if err := agent.Transport.Send(ctx, req.ID(), targets, command); err != nil {
		Log.Errorf("Unable to send request %d to %v: %v", req.ID(), targets, err)

		req.CompleteExceptionally(err)
	}

	return req
}

func (agent *Agent) Invoke(ctx context.Context, targets []address.Address, command interface{}, responseCollector collector.ResponseCollector, timeout time.Duration) (interface{}, error) {
	return agent.InvokeAsync(ctx, targets, command, responseCollector, timeout).Wait(ctx)
}

func (agent *Agent) InvokeOnMember(ctx context.Context, target address.Address, command interface{}, timeout time.Duration) (interface{}, error) {
	return agent.Invoke(ctx, []address.Address{target}, command, collector.NewValidSingleResponseCollector(), timeout)
}

// InvokeQuorum returns successfully as soon as a majority of targets replied
// with a valid response
func (agent *Agent) InvokeQuorum(ctx context.Context, targets []address.Address, command interface{}, timeout time.Duration) ([]collector.SenderResponse, error) {
	if targets == nil {
		targets = agent.remoteMembers()
	}

	if len(targets) == 0 {
		return nil, ENoQuorum
	}

	result, err := agent.Invoke(ctx, targets, command, collector.NewQuorumCollector(len(targets)), timeout)

	if err != nil {
		return nil, err
	}

	return result.([]collector.SenderResponse), nil
}

// Receive classifies a raw reply and routes it to its request
func (agent *Agent) Receive(requestID uint64, sender address.Address, raw *response.RawReply) {
	agent.Repository.OnResponse(requestID, sender, response.Classify(sender, raw))
}

func (agent *Agent) OnMembershipChange(members []address.Address) {
	Log.Infof("Cluster membership changed to %v", members)

	agent.Repository.OnMembershipChange(members)
}

func (agent *Agent) CancelAll() {
	agent.Repository.CancelAll(EClosed)
}

func (agent *Agent) remoteMembers() []address.Address {
	local := agent.Transport.LocalAddress()
	members := agent.Transport.Members()
	remote := make([]address.Address, 0, len(members))

	for _, member := range members {
		if !member.Equals(local) {
			remote = append(remote, member)
		}
	}

	return remote
}
