// Package endpoint models one configured inference endpoint: its base URL,
// sub-path resolution, and the reachability last observed by a warm-up probe.
package endpoint
