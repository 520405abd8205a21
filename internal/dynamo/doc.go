// Package dynamo provides the time-stepping core used by the built-in
// simulation backend.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: input profile applied at each step (e.g. constant current)
//   - [Simulator]: orchestrates a run with sampling and terminal events
//
// # Example
//
//	sim := dynamo.New(cell, integrators.NewRK4(), dynamo.Constant(7.5))
//	sim.AddGuard(cutoff)
//	result, err := sim.Run(ctx, x0, cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Build one per run; systems and
// integrators may hold scratch buffers.
package dynamo
