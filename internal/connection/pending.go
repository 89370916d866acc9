package connection

// Waiter tables owned by the run loop. Each waiter is a one-shot slot:
// it is removed from its table before the single send, so it completes
// exactly once. Callers that time out simply abandon their buffered
// channel.

type nodeResult struct {
	id  uint16
	err error
}

type valueResult struct {
	values []int16
	err    error
}

// describedWaiter parks a Get call until its node finishes description;
// resolve runs on the run loop once the descriptor table exists.
type describedWaiter struct {
	ch      chan valueResult
	resolve func() valueResult
}

type waiterTables struct {
	// node waiters park until any node completes its handshake.
	node []chan nodeResult
	// described waiters are keyed by the node id they wait on.
	described map[uint16][]describedWaiter
}

func newWaiterTables() *waiterTables {
	return &waiterTables{described: make(map[uint16][]describedWaiter)}
}

func (w *waiterTables) addNodeWaiter(ch chan nodeResult) {
	w.node = append(w.node, ch)
}

func (w *waiterTables) resolveNodeWaiters(id uint16) {
	for _, ch := range w.node {
		ch <- nodeResult{id: id}
	}
	w.node = nil
}

func (w *waiterTables) addDescribedWaiter(id uint16, wt describedWaiter) {
	w.described[id] = append(w.described[id], wt)
}

func (w *waiterTables) resolveDescribedWaiters(id uint16) {
	waiters := w.described[id]
	if len(waiters) == 0 {
		return
	}
	delete(w.described, id)
	for _, wt := range waiters {
		wt.ch <- wt.resolve()
	}
}

// failAll rejects every parked waiter; used on teardown and transport
// failure.
func (w *waiterTables) failAll(err error) {
	for _, ch := range w.node {
		ch <- nodeResult{err: err}
	}
	w.node = nil
	for id, waiters := range w.described {
		for _, wt := range waiters {
			wt.ch <- valueResult{err: err}
		}
		delete(w.described, id)
	}
}
