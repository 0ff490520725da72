// Package metrics registra los colectores Prometheus del servicio.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Requests HTTP atendidos por método, ruta y status.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de requests HTTP.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	SecurityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "security_events_total",
		Help: "Eventos de seguridad: registros, logins, rate limits.",
	}, []string{"event"})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_messages_sent_total",
		Help: "Mensajes salientes por origen y resultado.",
	}, []string{"source", "result"})

	InboundQueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_inbound_total",
		Help: "Mensajes entrantes por resultado del encolado.",
	}, []string{"result"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webhook_queue_depth",
		Help: "Trabajos pendientes en la cola de mensajes entrantes.",
	})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtor_state_transitions_total",
		Help: "Cambios de estado de deudores tras clasificar un mensaje.",
	}, []string{"from", "to"})

	ClassifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "state_classifier_fallback_total",
		Help: "Clasificaciones resueltas por heurística porque el LLM falló.",
	})

	PaymentLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_links_created_total",
		Help: "Links de pago generados.",
	})
)
