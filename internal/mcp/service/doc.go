// Package service wires protocol transport to the table's domain handlers.
//
// It is the transport adapter layer: the package knows how to run MCP over
// stdio or HTTP and delegates business meaning to the handlers in the domain
// package, all of which operate on the shared session store.
package service
