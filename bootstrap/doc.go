// Package bootstrap runs an httpsmgr application: it validates the typed
// configuration, initializes logging, starts registered components, runs a
// finite task and shuts everything down again.
//
//	app, err := bootstrap.NewApp(cfg)
//	app.RegisterComponent(https.NewComponent(cfg.HTTPS))
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return drive(ctx, app)
//	})
//
// SIGINT and SIGTERM cancel the task context.
package bootstrap
