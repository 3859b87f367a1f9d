/*
Package log provides structured logging for squaredosed using zerolog.

Init configures the global Logger once at startup. Components get their
own child logger via WithComponent, and the domain-specific WithHead and
WithSchedule helpers attach a head index or schedule identity so log
lines can be filtered without string-parsing the message.
*/
package log
