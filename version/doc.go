// Package version reports build information of the cmdflow binary.
//
// Release builds set the version at link time:
//
//	go build -ldflags "-X github.com/kbukum/cmdflow/version.Version=1.2.0"
package version
