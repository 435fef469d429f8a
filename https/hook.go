package https

// Disposition is a response hook's decision. Build one with Respond or
// Detach; the zero value is a contract violation.
type Disposition struct {
	code   int
	detach bool
}

// Respond finalizes the transaction with code. The manager then moves it to
// the completed list.
func Respond(code int) Disposition {
	return Disposition{code: code}
}

// Detach tells the manager the hook has consumed the transaction. The
// manager unlinks it, releases its socket and skips further bookkeeping;
// the transaction's outcome stays 0.
func Detach() Disposition {
	return Disposition{detach: true}
}

// Code returns the outcome carried by a Respond disposition.
func (d Disposition) Code() int { return d.code }

// Detached reports whether the disposition transfers ownership.
func (d Disposition) Detached() bool { return d.detach }

func (d Disposition) valid() bool {
	return d.detach || d.code > 0
}

// ResponseHook decides what a complete response means. It is called once
// per transaction, with the manager lock held, when a response carrying a
// 2xx status line or any content has been parsed. Apart from closing the
// transaction it was given, it must not call back into the Manager.
type ResponseHook interface {
	OnResponse(t *Transaction) Disposition
}

// HookFunc adapts a function to ResponseHook.
type HookFunc func(t *Transaction) Disposition

// OnResponse calls f(t).
func (f HookFunc) OnResponse(t *Transaction) Disposition { return f(t) }

// StatusHook responds with the numeric status from the response's status
// line, or StatusFailed if it cannot be parsed.
type StatusHook struct{}

// OnResponse implements ResponseHook.
func (StatusHook) OnResponse(t *Transaction) Disposition {
	if r := t.Response(); r != nil {
		if code := r.StatusCode(); code != 0 {
			return Respond(code)
		}
	}
	return Respond(StatusFailed)
}
