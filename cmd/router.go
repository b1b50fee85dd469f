package main

import (
	"net/http"

	"github.com/angeloszaimis/label-gateway/config"
	"github.com/angeloszaimis/label-gateway/internal/handler"
	"github.com/angeloszaimis/label-gateway/internal/metrics"
)

func setupRouter(gateway *handler.GatewayHandler, metricsCollector *metrics.Collector, assets config.AssetsConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.Redirect(assets.Root))
	mux.HandleFunc("GET /sam3.pt", handler.Redirect(assets.SAM3))
	mux.HandleFunc("GET /download", handler.Redirect(assets.SAM3))
	mux.HandleFunc("GET /vocab.txt.gz", handler.Redirect(assets.Vocab))
	mux.HandleFunc("GET /vocab", handler.Redirect(assets.VocabText))

	mux.HandleFunc("POST /label-image", gateway.LabelImage)
	mux.HandleFunc("GET /health", gateway.Health)

	mux.Handle("GET /metrics", metricsCollector.PrometheusHandler())
	mux.HandleFunc("GET /stats", metricsCollector.Handler())

	return mux
}
