// Package dashboard is the presentation layer: an interactive Bubble Tea
// model for exploring charging parameters, and a static report renderer
// used by the run and show commands.
//
// # Key Bindings
//
//	↑/↓     - Select a control
//	←/→     - Nudge the selected control (shift for ten steps)
//	S       - Save the current run
//	T       - Cycle color themes
//	R       - Reset all controls
//	?       - Toggle full help
//	Q       - Quit
//
// Every change to a control starts a new simulation. Results that arrive
// after a newer change are dropped.
package dashboard
