// Package clock provides a minimal wall-clock abstraction.
//
// Production code uses clock.System(); tests inject clock.NewFixed to pin
// "now" and advance it explicitly. Every Clock returns UTC timestamps so that
// period-end comparisons never depend on the host timezone.
package clock
