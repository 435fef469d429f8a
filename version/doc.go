// Package version reports the build version of httpsmgr binaries.
//
// Values are stamped at link time and fall back to the module's VCS
// build settings:
//
//	go build -ldflags "-X github.com/kbukum/httpsmgr/version.Version=1.2.0" ./cmd/httpsctl
package version
