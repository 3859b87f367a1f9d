// Package schedule manages the one recurring dosing schedule each head may
// hold: persistence in the schedules namespace and a 4-slot in-memory cache
// that the scheduler tick checks every second. CheckAndExecute releases its
// lock before a dispense runs and reacquires it only to record the result,
// so a slow dispense on one head never blocks reads or writes to another.
package schedule
