//go:build debug

package config

// defaultStreamsDBN is the streams back-end's default logical database
// number in debug builds (go build -tags debug), per §6, so a developer
// running drmemd against a shared Redis instance lands on a separate
// logical database from production by default.
const defaultStreamsDBN = 1
