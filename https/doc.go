// Package https manages outbound HTTP/HTTPS request-response exchanges over
// non-blocking sockets, driven entirely by the caller's poll loop.
//
// A Manager has no goroutines of its own that change transaction state.
// Every transition happens inside SendRequest, PrePoll, PostPoll or Close,
// all serialized by one mutex:
//
//	m, err := https.New(cfg)
//	tx := m.SendRequest("https://api.example.com/v1/ping", message.NewRequest("GET", "/v1/ping"))
//
//	fdm := netpoll.NewFDMap()
//	for !tx.Done() {
//	    next := time.Now().Add(time.Second)
//	    m.PrePoll(fdm)
//	    netpoll.Wait(fdm, time.Until(next))
//	    if err := m.PostPoll(fdm, &next); err != nil { ... }
//	    fdm.Reset()
//	}
//	log.Println(tx.Outcome())
//	m.CloseTransaction(tx)
//
// Outcomes are real status codes or one of three sentinels:
// StatusDispatchFailed (503) when no connection was ever attempted,
// StatusUnknownOutcome (501) when the connection was lost or timed out
// before the request was fully sent, and StatusFailed (500) for an unusable
// response or a loss after the request was sent.
package https
