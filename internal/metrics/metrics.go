package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Business metrics
	rsvpDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_rsvp_decisions_total",
			Help: "Capacity decisions for yes responses",
		},
		[]string{"decision", "reason"},
	)

	rsvpRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_rsvps_recorded_total",
			Help: "RSVP rows written",
		},
		[]string{"status"},
	)

	waitlistJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invite_waitlist_joins_total",
			Help: "Waitlist entries created",
		},
	)

	guestRemovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_guest_removals_total",
			Help: "Confirmed guests removed, by whether someone was promoted",
		},
		[]string{"promoted"},
	)

	capacityConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invite_capacity_conflicts_total",
			Help: "Guarded inserts rejected at write time",
		},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_notifications_total",
			Help: "Email notifications by kind and result",
		},
		[]string{"kind", "result"},
	)

	imageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invite_image_uploads_total",
			Help: "Event image uploads by result",
		},
		[]string{"result"},
	)
)

func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordDecision(decision, reason string) {
	rsvpDecisionsTotal.WithLabelValues(decision, reason).Inc()
}

func RecordRSVP(status string) {
	rsvpRecordedTotal.WithLabelValues(status).Inc()
}

func RecordWaitlistJoin() {
	waitlistJoinsTotal.Inc()
}

func RecordGuestRemoval(promoted bool) {
	guestRemovalsTotal.WithLabelValues(strconv.FormatBool(promoted)).Inc()
}

func RecordCapacityConflict() {
	capacityConflictsTotal.Inc()
}

// RecordNotification: result is one of sent, failed, skipped.
func RecordNotification(kind, result string) {
	notificationsTotal.WithLabelValues(kind, result).Inc()
}

func RecordImageUpload(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	imageUploadsTotal.WithLabelValues(result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
