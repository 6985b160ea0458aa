/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the backend
service, tracking HTTP requests, package validations, registry lifecycle
events, and isolation activity.

# Features

- HTTP request metrics (latency, throughput, size)
- Package validation metrics (duration, outcomes, recovery scans)
- Extension lifecycle metrics (installs, removals, enabled counts)
- Isolation metrics (partition derivations, policy revision)
- Permission grant metrics
- WebSocket connection metrics
- System metrics (uptime)

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.SetExtensionCounts(5, 3)
	metrics.IncInstalls()

	// Time validations
	timer := monitoring.NewTimer(metrics, "archive")
	// ... validate ...
	timer.Stop("valid")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
