// Package events carries scan and thumbnail progress notifications from the
// engine to interested clients.
//
// Bus is an in-process fan-out: every subscriber gets its own buffered
// channel, and a subscriber that falls behind loses events rather than
// slowing down publishers. Engine packages depend only on the Publisher
// interface, so tests can pass Discard or a recording fake.
//
// ServeWS exposes the bus over a websocket, one JSON frame per event:
//
//	{"event":"scan:progress","data":{"path":"/photos/2024","status":"done"},"timestamp":1718000000000}
package events
