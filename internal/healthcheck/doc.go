// Package healthcheck probes inference endpoints for liveness.
//
// WarmUp sweeps every endpoint once, concurrently, and only logs and records
// what it sees; it never fails. Run repeats the sweep on an interval. Probes
// exist for observability and to wake idle endpoints, not for routing: the
// router keeps rotating over unreachable endpoints.
package healthcheck
