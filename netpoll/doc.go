// Package netpoll is the readiness multiplexer the transaction manager is
// driven by.
//
// An FDMap records, per descriptor, the events a component is interested in
// and, after Wait, the events that were reported. Components register
// interest during the pre-poll phase, the caller blocks in Wait, and the same
// map is handed back to the components during the post-poll phase.
//
//	fdm := netpoll.NewFDMap()
//	for {
//	    mgr.PrePoll(fdm)
//	    netpoll.Wait(fdm, time.Until(next))
//	    mgr.PostPoll(fdm, &next)
//	    fdm.Reset()
//	}
package netpoll
