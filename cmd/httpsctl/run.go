package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"slices"
	"time"

	"github.com/kbukum/httpsmgr/https"
	"github.com/kbukum/httpsmgr/message"
	"github.com/kbukum/httpsmgr/netpoll"
	"github.com/kbukum/httpsmgr/resilience"
)

// maxWait caps a single poll so cancellation is noticed promptly.
const maxWait = time.Second

// requestSpec is the method, headers and body shared by every target.
type requestSpec struct {
	method  string
	headers []message.Header
	body    []byte
}

// forTarget builds the request for rawURL. The manager adds the Host
// header.
func (r *requestSpec) forTarget(rawURL string) *message.Message {
	path := "/"
	if u, err := url.Parse(rawURL); err == nil {
		path = u.RequestURI()
	}
	m := message.NewRequest(r.method, path)
	m.Headers = append(m.Headers, r.headers...)
	m.Content = r.body
	return m
}

// result is one target's finished transaction.
type result struct {
	URL      string
	Outcome  int
	Elapsed  time.Duration
	Response *message.Message
}

// run sends a request to every target, paced by limiter, and drives the
// poll loop until all of them have an outcome or ctx is done. Transactions
// are closed before it returns. Targets not yet dispatched when ctx ends
// report outcome 0.
func run(ctx context.Context, m *https.Manager, targets []string, spec *requestSpec, limiter *resilience.RateLimiter) ([]result, error) {
	txs := make([]*https.Transaction, len(targets))
	defer func() {
		for _, tx := range txs {
			m.CloseTransaction(tx)
		}
	}()

	err := drive(ctx, m, limiter,
		func() bool { return slices.Contains(txs, nil) },
		func() {
			i := slices.Index(txs, nil)
			txs[i] = m.SendRequestContext(ctx, targets[i], spec.forTarget(targets[i]))
		},
		func() bool { return !slices.Contains(txs, nil) && allDone(txs) },
	)
	return collect(targets, txs), err
}

// drive runs PrePoll, Wait and PostPoll until done reports true. Each
// cycle first calls send while work is pending and limiter allows.
func drive(ctx context.Context, m *https.Manager, limiter *resilience.RateLimiter, pending func() bool, send func(), done func() bool) error {
	fdm := netpoll.NewFDMap()
	var next time.Time
	for {
		for pending() && limiter.Allow() {
			send()
		}
		if done() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		m.PrePoll(fdm)
		wait := waitFor(next)
		if d := limiter.Delay(); pending() && d > 0 && d < wait {
			wait = d
		}
		next = time.Time{}
		if _, err := netpoll.Wait(fdm, wait); err != nil {
			return err
		}
		if err := m.PostPoll(fdm, &next); err != nil {
			return err
		}
		fdm.Reset()
	}
}

// waitFor turns a deadline hint into a poll timeout in [0, maxWait].
func waitFor(next time.Time) time.Duration {
	if next.IsZero() {
		return maxWait
	}
	d := time.Until(next)
	switch {
	case d < 0:
		return 0
	case d > maxWait:
		return maxWait
	}
	return d
}

func allDone(txs []*https.Transaction) bool {
	for _, tx := range txs {
		if !tx.Done() {
			return false
		}
	}
	return true
}

func collect(targets []string, txs []*https.Transaction) []result {
	out := make([]result, 0, len(txs))
	for i, tx := range txs {
		if tx == nil {
			out = append(out, result{URL: targets[i]})
			continue
		}
		out = append(out, result{
			URL:      tx.URL(),
			Outcome:  tx.Outcome(),
			Elapsed:  tx.Elapsed(),
			Response: tx.Response(),
		})
	}
	return out
}

func countFailures(results []result) int {
	n := 0
	for _, r := range results {
		if r.Outcome == 0 || r.Outcome >= 400 {
			n++
		}
	}
	return n
}

// report prints one line per target followed, when include is set, by the
// response head, then the response body.
func report(w io.Writer, results []result, include bool) {
	for _, r := range results {
		fmt.Fprintf(w, "%d %s %s\n", r.Outcome, r.URL, r.Elapsed.Round(time.Millisecond))
		if r.Response == nil {
			continue
		}
		if include {
			fmt.Fprintln(w, r.Response.MethodLine)
			for _, h := range r.Response.Headers {
				fmt.Fprintf(w, "%s: %s\n", h.Name, h.Value)
			}
			fmt.Fprintln(w)
		}
		if len(r.Response.Content) > 0 {
			_, _ = w.Write(r.Response.Content)
			fmt.Fprintln(w)
		}
	}
}
