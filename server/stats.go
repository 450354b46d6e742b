/******************************************************************************
 *
 *  Description :
 *
 *  Prometheus instrumentation: live traffic counters plus gauges computed
 *  from the registries on scrape.
 *
 *****************************************************************************/

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	statsLiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "emshop_ws_live_connections",
		Help: "Number of open websocket connections.",
	})
	statsMessagesIn = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emshop_ws_messages_in_total",
		Help: "Inbound websocket messages.",
	})
	statsMessagesOut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emshop_ws_messages_out_total",
		Help: "Outbound websocket messages.",
	})
	statsMalformedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emshop_ws_malformed_total",
		Help: "Inbound frames which failed to parse.",
	})
	statsAuthFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emshop_ws_auth_failures_total",
		Help: "Rejected authentication attempts.",
	})
	statsPushDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emshop_push_delivered_total",
		Help: "Push notifications delivered to connections.",
	})
	statsEvictedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "emshop_ws_evicted_total",
		Help: "Connections closed by idle eviction.",
	})
)

// statsInit registers the collectors and mounts the scrape endpoint.
func statsInit(mux *http.ServeMux, path string, b *Broker) {
	if path == "" || path == "-" {
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		statsLiveConnections,
		statsMessagesIn,
		statsMessagesOut,
		statsMalformedTotal,
		statsAuthFailures,
		statsPushDelivered,
		statsEvictedTotal,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "emshop_online_users",
			Help: "Users with at least one authenticated connection.",
		}, func() float64 { return float64(b.conns.OnlineUserCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "emshop_topics",
			Help: "Topics with at least one subscriber.",
		}, func() float64 { return float64(b.subs.TopicCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "emshop_worker_queue_depth",
			Help: "Handler tasks waiting for a worker.",
		}, func() float64 { return float64(b.pool.QueueDepth()) }),
	)
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}
