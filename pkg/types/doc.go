// Package types defines the Driver contract, the response Envelope, record and
// collection types, call options, configuration and the standard errors for the
// Pantry data-access layer.
//
// Drivers (memory, remote, sqlite) exchange Documents; typed services in
// internal/service convert between Documents and concrete record structs.
package types
