// Package ipc carries the CageClock message bus between the CLI and the
// daemon.
//
// Every message is a variant of the sealed Request interface. The Handler
// interface has one method per variant and Route is the single dispatcher,
// so adding a message without handling it fails to compile. On the wire the
// variants travel inside an Envelope over JSON-RPC on a Unix domain socket;
// the server also exposes Status and Stop for daemon control.
package ipc
