package main

import (
	"net/http"
	"time"

	"github.com/flowrun/fbp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeMetricsCmd() *cobra.Command {
	var addr string
	var scenario string

	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "run a sample graph under an Executor and expose its Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeMetrics(addr, scenario)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "address to serve /metrics on")
	cmd.Flags().StringVar(&scenario, "scenario", "s5", "scenario to run while serving metrics")
	return cmd
}

func runServeMetrics(addr, scenarioName string) error {
	build, ok := scenarios[scenarioName]
	if !ok {
		build = buildS5
	}

	reg := prometheus.NewRegistry()
	metrics := fbp.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.WithField("addr", addr).Info("serving /metrics")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	g := build()
	ex := fbp.NewExecutor(g, fbp.WithMetrics(metrics))

	stopDepthSampler := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.ObserveConnectionDepth(g)
			case <-stopDepthSampler:
				return
			}
		}
	}()

	err := ex.Execute()
	close(stopDepthSampler)
	if err != nil {
		log.WithError(err).Error("scenario failed")
	}
	return err
}
