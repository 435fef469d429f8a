// Package component defines the lifecycle interface shared by the
// long-lived parts of an httpsmgr process and a registry that starts them
// in order and stops them in reverse.
//
//	reg := component.NewRegistry(log)
//	_ = reg.Register(https.NewComponent(cfg, log))
//	if err := reg.StartAll(ctx); err != nil { ... }
//	defer reg.StopAll(ctx)
package component
