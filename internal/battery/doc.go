// Package battery defines the data model shared by the simulation adapter,
// the safety engine and the dashboard:
//
//   - [Chemistry]: the fixed catalog of named parameter sets
//   - [Parameters]: one complete, validated set of slider values
//   - [SeriesBundle]: the immutable time-series produced by a simulation
//   - [SolverFailure]: the failure token returned when a solve cannot complete
//
// Values are kept in SI units. Controls expose the user-facing ranges, where
// electrode dimensions are in micrometres.
package battery
