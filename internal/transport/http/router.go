package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quizquest-service/internal/metrics"
)

// NewRouter assembles the API, websocket, health and metrics endpoints.
// A nil gatherer leaves /metrics unmounted.
func NewRouter(api *Handler, ws *WSHandler, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /ws", ws.ServeWS)
	api.Register(mux)
	return m.Middleware(mux)
}
