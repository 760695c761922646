package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration saga. Compensation
// failures are the operator-attention signal: they leave an orphaned
// authentication record that nothing retries automatically.
type Metrics struct {
	ProfilesCreated      prometheus.Counter
	CreationFailures     prometheus.Counter
	Compensations        prometheus.Counter
	CompensationFailures prometheus.Counter
}

// New creates a Metrics instance with all saga metrics registered.
func New() *Metrics {
	return &Metrics{
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_registration_profiles_created_total",
			Help: "Total number of profiles created by the registration saga",
		}),
		CreationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_registration_creation_failures_total",
			Help: "Total number of failed profile-creation attempts",
		}),
		Compensations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_registration_compensations_total",
			Help: "Total number of completed compensating deletions",
		}),
		CompensationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sigil_registration_compensation_failures_total",
			Help: "Total number of failed compensating deletions requiring operator attention",
		}),
	}
}
