//go:build !debug

package config

// defaultStreamsDBN is the streams back-end's default logical database
// number in release builds, per §6.
const defaultStreamsDBN = 0
