// Package flowcelltool is the client for the Flowcelltool REST API, the
// authoritative store for per-run sequencing and conversion status.
//
// Every operation addresses a run by its directory path. Transport,
// authentication, and server failures surface as ErrStatusUnavailable so
// callers never mistake an outage for a status value. Requests are rate
// limited and never retried by the client.
package flowcelltool
