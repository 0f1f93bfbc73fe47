package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential lifecycle.
type Metrics struct {
	CredentialsIssued    prometheus.Counter
	CredentialsRevoked   prometheus.Counter
	Verifications        *prometheus.CounterVec
	PendingAnchors       *prometheus.CounterVec
	AnchorsReconciled    *prometheus.CounterVec
	ContentStoreFailures prometheus.Counter
	IssueDuration        prometheus.Histogram
	VerifyDuration       prometheus.Histogram
	RevokeDuration       prometheus.Histogram
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// New registers the credential metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CredentialsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "pixel_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "pixel_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixel_verifications_total",
			Help: "Verification verdicts by validity and on-chain status",
		}, []string{"valid", "on_chain"}),
		PendingAnchors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixel_anchor_pending_total",
			Help: "Ledger operations deferred because the oracle was unavailable",
		}, []string{"op"}),
		AnchorsReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixel_anchor_reconciled_total",
			Help: "Pending ledger operations completed by the reconciler",
		}, []string{"op"}),
		ContentStoreFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "pixel_content_store_failures_total",
			Help: "Credential documents that could not be written to the content store",
		}),
		IssueDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixel_issue_duration_seconds",
			Help:    "Duration of credential issuance",
			Buckets: latencyBuckets,
		}),
		VerifyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixel_verify_duration_seconds",
			Help:    "Duration of credential verification",
			Buckets: latencyBuckets,
		}),
		RevokeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixel_revoke_duration_seconds",
			Help:    "Duration of credential revocation",
			Buckets: latencyBuckets,
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	m.CredentialsIssued.Inc()
}

func (m *Metrics) IncrementRevoked() {
	m.CredentialsRevoked.Inc()
}

// RecordVerification counts a verdict.
func (m *Metrics) RecordVerification(valid bool, onChain string) {
	label := "false"
	if valid {
		label = "true"
	}
	m.Verifications.WithLabelValues(label, onChain).Inc()
}

func (m *Metrics) IncrementPendingAnchor(op string) {
	m.PendingAnchors.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementReconciled(op string) {
	m.AnchorsReconciled.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementContentStoreFailure() {
	m.ContentStoreFailures.Inc()
}

// ObserveIssue records the duration of an Issue call started at start.
func (m *Metrics) ObserveIssue(start time.Time) {
	m.IssueDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRevoke(start time.Time) {
	m.RevokeDuration.Observe(time.Since(start).Seconds())
}
