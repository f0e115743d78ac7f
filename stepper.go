// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coro

// Stepping boundary for external drivers.
// A Stepper hands control back to its caller at every suspension point
// instead of resuming from inside dispatch, making machines easy to
// drive one step at a time from an event loop, a scheduler test, or a
// pull-style builder.

// Parked is a suspension handed to the driver: the resolved member
// name, the evaluated arguments, and the one-shot continuation that
// advances the machine.
type Parked struct {
	Member string
	Args   []Value
	K      *Continuation
}

// Stepper is a controller that parks each suspension for the caller
// and records the terminal outcome. Zero value is ready to use; one
// machine per Stepper.
type Stepper struct {
	parked *Parked

	result    Value
	err       error
	completed bool
	failed    bool
}

// DispatchSuspend implements [Controller] by parking the suspension.
func (s *Stepper) DispatchSuspend(member string, args []Value, k *Continuation) {
	s.parked = &Parked{Member: member, Args: args, K: k}
}

// HandleResult implements [ResultHandler].
func (s *Stepper) HandleResult(v Value) {
	s.result = v
	s.completed = true
}

// HandleException implements [ExceptionHandler].
func (s *Stepper) HandleException(err error) {
	s.err = err
	s.failed = true
}

// Take returns the parked suspension and clears it, or nil when the
// machine ran past the last suspension to a terminal state. The caller
// advances the machine by consuming the parked continuation.
func (s *Stepper) Take() *Parked {
	p := s.parked
	s.parked = nil
	return p
}

// Result returns the recorded completion value and whether the machine
// completed normally.
func (s *Stepper) Result() (Value, bool) { return s.result, s.completed }

// Err returns the recorded uncaught error and whether the machine
// failed.
func (s *Stepper) Err() (error, bool) { return s.err, s.failed }
