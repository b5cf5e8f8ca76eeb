package core

import (
	"errors"
	"fmt"

	"github.com/encodeous/netsim/perf"
	"github.com/encodeous/netsim/state"
)

// Message is a control-plane message between two routers. Exactly one of Update, LSA and Call is
// set.
type Message struct {
	From   state.NodeId
	To     state.NodeId
	Update *RIPUpdate
	LSA    *state.LSA
	// Call runs on the receiving router, for timers and protocol start-up
	Call func()
}

func (m Message) String() string {
	switch {
	case m.Update != nil:
		return fmt.Sprintf("%s -> %s rip %s metric %d", m.From, m.To, m.Update.Prefix, m.Update.Metric)
	case m.LSA != nil:
		return fmt.Sprintf("%s -> %s %s", m.From, m.To, m.LSA)
	case m.Call != nil:
		return fmt.Sprintf("%s call", m.To)
	}
	return fmt.Sprintf("%s -> %s empty", m.From, m.To)
}

func (r *Router) SendUpdate(neigh state.NodeId, update RIPUpdate) {
	r.post(Message{From: r.Id, To: neigh, Update: &update})
}

func (r *Router) SendLSA(neigh state.NodeId, lsa *state.LSA) {
	r.post(Message{From: r.Id, To: neigh, LSA: lsa})
}

// Handle dispatches a message to the protocol it belongs to. Messages for a protocol the router
// does not run are dropped. Stale advertisements are counted and otherwise ignored.
func (r *Router) Handle(msg Message) error {
	switch {
	case msg.Call != nil:
		msg.Call()
	case msg.Update != nil:
		if r.rip == nil {
			return nil
		}
		r.rip.HandleUpdate(msg.From, msg.Update.Prefix, msg.Update.Metric)
	case msg.LSA != nil:
		if r.ospf == nil {
			return nil
		}
		err := r.ospf.HandleLSA(msg.LSA, msg.From)
		if errors.Is(err, state.ErrStaleLSA) {
			perf.LSAsStale.Add(1)
			r.Log(LSAStale, err.Error(), "from", msg.From)
			return nil
		}
		return err
	}
	return nil
}
