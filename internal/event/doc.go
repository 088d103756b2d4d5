// Package event defines the typed event stream the Duskhollow core emits
// and the synchronous pub/sub bus that carries it.
//
// External layers (transport, UI, analytics) subscribe to named event
// types rather than registering themselves on the components that produce
// them; the bus is the only integration point. Payloads that leave the
// core must pass through Sanitize first so consumers can serialize them
// for network delivery without tripping over cycles or unserializable
// values.
package event
