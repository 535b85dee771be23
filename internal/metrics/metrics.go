package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "propertypost"

// Recorder exports credit and generation metrics to Prometheus. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	checkouts     *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	generations   *prometheus.CounterVec
	creditsGrant  prometheus.Counter
	creditsSpent  prometheus.Counter
}

// NewRecorder builds a Recorder on its own registry, alongside the Go
// runtime and process collectors.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions requested, by result.",
		}, []string{"result"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries, by event type and result.",
		}, []string{"type", "result"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation requests, by result.",
		}, []string{"result"}),
		creditsGrant: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_granted_total",
			Help:      "Credits added by completed payments.",
		}),
		creditsSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_spent_total",
			Help:      "Credits consumed by successful generations.",
		}),
	}

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.checkouts, r.webhookEvents, r.generations, r.creditsGrant, r.creditsSpent,
	}
	for _, c := range cs {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Checkout(result string) {
	if r == nil {
		return
	}
	r.checkouts.WithLabelValues(result).Inc()
}

func (r *Recorder) WebhookEvent(eventType, result string) {
	if r == nil {
		return
	}
	r.webhookEvents.WithLabelValues(eventType, result).Inc()
}

// Generation records a generation outcome; spent is the credits consumed.
func (r *Recorder) Generation(result string, spent int) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(result).Inc()
	if spent > 0 {
		r.creditsSpent.Add(float64(spent))
	}
}

func (r *Recorder) CreditsGranted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.creditsGrant.Add(float64(n))
}
