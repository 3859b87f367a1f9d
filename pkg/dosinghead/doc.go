/*
Package dosinghead implements the dosing engine: per-head calibration
persistence and the blocking volume-to-runtime dispense operation.

A DosingHead converts a target volume into a motor runtime using its
calibrated mL/second rate, commands the actuator, and suspends the
calling goroutine for that runtime on a context-cancellable timer so
Heads.EmergencyStopAll can interrupt it promptly. Concurrent dispense
attempts on the same head are rejected with ErrBusy rather than queued.
*/
package dosinghead
