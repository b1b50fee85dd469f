// Package handler implements the gateway's HTTP surface: the image-labeling
// proxy route, the warm-up health route, the model-asset redirects, and the
// request logging middleware wrapped around all of them.
package handler
