package https

import (
	"time"

	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/observability"
	"github.com/kbukum/httpsmgr/security"
)

type options struct {
	clock    func() time.Time
	layer    SocketLayer
	hook     ResponseHook
	log      *logger.Logger
	metrics  *observability.TransactionMetrics
	identity *security.Identity
}

// Option customizes a Manager.
type Option func(*options)

// WithClock replaces time.Now for creation times and timeout checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithSocketLayer supplies the connection layer. The manager does not shut
// down a layer it did not create.
func WithSocketLayer(l SocketLayer) Option {
	return func(o *options) { o.layer = l }
}

// WithHook replaces StatusHook.
func WithHook(h ResponseHook) Option {
	return func(o *options) { o.hook = h }
}

// WithLogger sets the logger. Defaults to the registered "transport" and
// Config.Name loggers, see logger.Get.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records transaction metrics on m.
func WithMetrics(m *observability.TransactionMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithIdentity supplies a ready identity instead of building one from
// Config.TLS. The manager takes ownership and closes it on teardown.
func WithIdentity(id *security.Identity) Option {
	return func(o *options) { o.identity = id }
}
