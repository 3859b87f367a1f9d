/*
Package events provides an in-memory event broker used to fan dosing,
emergency-stop, and Wi-Fi state changes out to subscribers. The /ws
handler forwards only the dose and emergency-stop events to WebSocket
clients; Wi-Fi mode changes stay internal.

Broker buffers published events on an internal channel and broadcasts
each to every subscriber's own buffered channel; a slow or stalled
subscriber drops events rather than blocking the publisher.
*/
package events
