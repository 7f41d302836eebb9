package metrics

//
// Copyright (c) 2019 ARM Limited.
//
// SPDX-License-Identifier: MIT
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	. "github.com/PelionIoT/devicegrid/error"
	"github.com/PelionIoT/devicegrid/request"
	"github.com/PelionIoT/devicegrid/transport"
	"github.com/PelionIoT/devicegrid/xsite"
)

const namespace = "devicegrid"

// Metrics observes requests and backups. It is a request.Observer and its
// SiteCompleted method is an xsite.SiteCompletedListener.
type Metrics struct {
	registry        *prometheus.Registry
	inFlight        prometheus.Gauge
	settled         *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backupDuration  *prometheus.HistogramVec
	backupFailures  *prometheus.CounterVec
	offlineSites    *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "in_flight",
			Help:      "Cluster requests waiting for replies",
		}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "settled_total",
			Help:      "Cluster requests by terminal state",
		}, []string{"state"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "duration_seconds",
			Help:      "Time from registration to settlement of cluster requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
		backupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "xsite",
			Name:      "backup_duration_seconds",
			Help:      "Time taken by a remote site to apply or refuse a backup",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"site", "mode"}),
		backupFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xsite",
			Name:      "backup_failures_total",
			Help:      "Failed backups by site and kind of failure",
		}, []string{"site", "kind"}),
		offlineSites: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "xsite",
			Name:      "site_offline",
			Help:      "1 while backups to the site are suspended",
		}, []string{"site"}),
	}

	metrics.registry.MustRegister(
		metrics.inFlight,
		metrics.settled,
		metrics.requestDuration,
		metrics.backupDuration,
		metrics.backupFailures,
		metrics.offlineSites,
	)

	return metrics
}

func (metrics *Metrics) RequestRegistered() {
	metrics.inFlight.Inc()
}

func (metrics *Metrics) RequestSettled(state request.State, elapsed time.Duration) {
	metrics.inFlight.Dec()
	metrics.settled.WithLabelValues(state.String()).Inc()
	metrics.requestDuration.WithLabelValues(state.String()).Observe(elapsed.Seconds())
}

func (metrics *Metrics) SiteCompleted(backup xsite.XSiteBackup, sendTime time.Time, duration time.Duration, cause error) {
	mode := "async"

	if backup.Sync {
		mode = "sync"
	}

	metrics.backupDuration.WithLabelValues(backup.SiteName, mode).Observe(duration.Seconds())

	if cause != nil {
		metrics.backupFailures.WithLabelValues(backup.SiteName, FailureKind(cause)).Inc()
	}
}

// RecordOfflineStatus exports whether each site of sender is offline
func (metrics *Metrics) RecordOfflineStatus(sender *xsite.BackupSender) {
	for _, site := range sender.Sites() {
		status, ok := sender.OfflineStatus(site)

		if !ok {
			continue
		}

		value := 0.0

		if status.IsOffline() {
			value = 1
		}

		metrics.offlineSites.WithLabelValues(site).Set(value)
	}
}

func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})
}

// FailureKind labels a backup failure
func FailureKind(cause error) string {
	var rejectedError *transport.RejectedError

	switch {
	case transport.IsCommunicationError(cause):
		return "communication"
	case errors.Is(cause, ETimeout):
		return "timeout"
	case errors.As(cause, &rejectedError):
		return "rejected"
	}

	return "other"
}
