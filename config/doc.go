// Package config loads the gateway configuration from config.yaml and the
// environment. It covers the listen address, the ordered inference endpoint
// list, upstream and warm-up probe settings, the rotation pointer store,
// the asset redirect targets, and logging.
package config
