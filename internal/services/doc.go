// Package services runs the start/stop lifecycle of the components in an
// environment.
//
// Any constructed component implementing Service is picked up. Services in
// the meta environment start first, then those of the main environment.
// Inside one environment a service starts after every service it was seen
// to depend on during construction (or named through di.StartAfter); ties
// keep registration order. StopAll walks the realized start order backwards.
package services
