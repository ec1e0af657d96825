package metrics

import (
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gazo_searches_total",
		Help: "Image searches by engine and outcome",
	}, []string{"engine", "outcome"})
	ImagesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gazo_images_fetched_total",
		Help: "Total number of images successfully downloaded",
	})
	BytesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gazo_bytes_fetched_total",
		Help: "Total bytes downloaded (pages and images)",
	})
	ImagesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gazo_images_processed_total",
		Help: "Total number of images resized, cropped and encoded",
	})
	ImageFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gazo_image_failures_total",
		Help: "Images skipped because download or processing failed",
	})
	ProcessSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gazo_process_seconds",
		Help:    "Time to download and process one image",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(Searches, ImagesFetched, BytesFetched, ImagesProcessed, ImageFailures, ProcessSeconds)
}

// Serve exposes /metrics on addr in the background. An empty addr does nothing.
// The returned server can be shut down by the caller.
func Serve(addr string) (*http.Server, error) {
	if addr == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Metrics] server stopped: %v", err)
		}
	}()

	log.Printf("[Metrics] Serving http://%s/metrics", ln.Addr())
	return srv, nil
}
