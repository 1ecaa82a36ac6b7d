// Package control executes operator actions on output devices.
//
// Three operations are offered: Toggle (invert the live state), manual
// override (force a state, switching the device to Manual first), and
// control method changes. Each writes the realtime store before the
// structured store and holds a per-device busy flag so overlapping actions
// on one device are rejected rather than interleaved.
package control
