// Package viz shows an evolving field in the terminal.
//
// The viewer steps through the transfer table one conformal time at a time,
// drawing a downsampled heatmap with half-block characters and an rms trace.
//
// # Key Bindings
//
//	Space   - Pause/Resume playback
//	←/→     - Step back/forward one eta
//	+/-     - Faster/slower playback
//	Home    - Jump to the first eta
//	T       - Cycle color themes
//	Q       - Quit
package viz
