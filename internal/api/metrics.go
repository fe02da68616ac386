package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesProxied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plurald_messages_proxied_total",
			Help: "Messages run through the proxy pipeline, by outcome.",
		},
		[]string{"outcome"}, // "proxied", "passthrough", "error"
	)

	switchesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plurald_switches_total",
			Help: "Front switches recorded.",
		},
	)

	webhookEdits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plurald_message_mutations_total",
			Help: "Edits, deletes and reproxies of delivered messages.",
		},
		[]string{"kind"}, // "edit", "delete", "reproxy"
	)
)

func init() {
	prometheus.MustRegister(messagesProxied)
	prometheus.MustRegister(switchesRecorded)
	prometheus.MustRegister(webhookEdits)
}
