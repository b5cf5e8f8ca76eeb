package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/encodeous/netsim/perf"
	"github.com/encodeous/netsim/state"
	"golang.org/x/sync/errgroup"
)

// Runtime runs every router of a network in its own goroutine. Each router drains an unbounded
// mailbox, so a router only ever touches its own state while handling messages.
type Runtime struct {
	net     *Network
	boxes   map[state.NodeId]*state.Queue[Message]
	pending sync.WaitGroup
	group   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelCauseFunc
}

// Start launches the router goroutines and routes the network's messages through them until Stop.
func Start(ctx context.Context, n *Network) *Runtime {
	ctx, cancel := context.WithCancelCause(ctx)
	g, ctx := errgroup.WithContext(ctx)
	rt := &Runtime{
		net:    n,
		boxes:  make(map[state.NodeId]*state.Queue[Message]),
		group:  g,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, r := range n.Routers() {
		box := state.NewQueue[Message]()
		rt.boxes[r.Id] = box
		g.Go(func() error {
			return rt.loop(r, box)
		})
	}
	n.transport = rt.Post
	n.settle = rt.WaitIdle
	return rt
}

func (rt *Runtime) loop(r *Router, box *state.Queue[Message]) error {
	rt.net.Log.Debug("started router loop", "router", r.Id)
	for {
		msg, ok := box.Get(rt.ctx)
		if !ok {
			return nil
		}
		start := time.Now()
		err := r.Handle(msg)
		elapsed := time.Since(start)
		perf.MessagesPerSec.Add(1)
		perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
		if elapsed > time.Millisecond*4 {
			rt.net.Log.Warn("dispatch took a long time!", "router", r.Id, "msg", msg, "elapsed", elapsed)
		}
		rt.pending.Done()
		if err != nil {
			rt.net.Log.Error("error occurred during dispatch: ", "router", r.Id, "error", err)
			return err
		}
	}
}

// Post puts msg into the mailbox of its target. It is safe for concurrent use.
func (rt *Runtime) Post(msg Message) {
	box, ok := rt.boxes[msg.To]
	if !ok {
		rt.net.Log.Warn("message for unknown router", "msg", msg)
		return
	}
	rt.pending.Add(1)
	box.Put(msg)
}

// WaitIdle blocks until every posted message, and every message posted while handling them, has
// been handled. It returns early with the cause if a router stopped.
func (rt *Runtime) WaitIdle() error {
	idle := make(chan struct{})
	go func() {
		rt.pending.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-rt.ctx.Done():
		return context.Cause(rt.ctx)
	}
}

// Stop shuts every router down and hands the transport back to the network's own queue.
func (rt *Runtime) Stop() error {
	rt.cancel(context.Canceled)
	err := rt.group.Wait()
	rt.net.transport = rt.net.enqueue
	rt.net.settle = func() error {
		rt.net.Run()
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
