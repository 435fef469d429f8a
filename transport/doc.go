// Package transport is the non-blocking connection layer used by the
// transaction manager.
//
// Dialing, the TLS handshake, reads and writes happen on per-socket
// goroutines, but their results become visible on a Socket only inside
// Manager.PostPoll. Between poll cycles a Socket's State, SendBuffer and
// RecvBuffer are stable, so a caller that serializes PrePoll/PostPoll with
// its own lock sees a consistent view without ever blocking on the network.
// Each socket wakes the poller through a shared netpoll.Waker when it has
// something to publish.
package transport
