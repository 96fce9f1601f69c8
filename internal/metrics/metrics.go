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
	durationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_gateway_notifications_sent_total",
			Help: "Total number of notifications accepted by the provider, by channel.",
		},
		[]string{"channel"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_gateway_notifications_failed_total",
			Help: "Total number of failed send attempts, by channel.",
		},
		[]string{"channel"},
	)

	NotificationsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_gateway_notifications_scheduled_total",
			Help: "Total number of notifications deferred to a future send time, by channel.",
		},
		[]string{"channel"},
	)

	NotificationsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_gateway_notifications_retried_total",
			Help: "Total number of retries scheduled, by channel.",
		},
		[]string{"channel"},
	)

	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_gateway_otp_issued_total",
			Help: "Total number of one-time codes handed to a provider successfully, by channel.",
		},
		[]string{"channel"},
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_gateway_otp_verifications_total",
			Help: "Total number of OTP verification calls, by result code.",
		},
		[]string{"result"},
	)

	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_gateway_send_duration_seconds",
			Help:    "Histogram of send attempt duration in seconds, by channel and success.",
			Buckets: durationBuckets,
		},
		[]string{"channel", "success"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDuration records how long a send attempt on channel took.
func ObserveDuration(channel string, success bool, start time.Time) {
	SendDuration.WithLabelValues(channel, strconv.FormatBool(success)).Observe(time.Since(start).Seconds())
}
