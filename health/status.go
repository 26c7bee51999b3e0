package health

import (
	"regexp"
	"strings"
	"time"
)

// States of a Status
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Pre-compiled regexes for error message sanitization
var (
	httpURLRegex     = regexp.MustCompile(`https?://[^\s]+`)
	natsURLRegex     = regexp.MustCompile(`nats://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status is the health of one probe or of an aggregate
type Status struct {
	Name        string        `json:"name"`
	Healthy     bool          `json:"healthy"`
	State       string        `json:"state"`
	Message     string        `json:"message,omitempty"`
	Latency     time.Duration `json:"latency,omitempty"`
	CheckedAt   time.Time     `json:"checked_at"`
	SubStatuses []Status      `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.State == StateHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.State == StateDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.State == StateUnhealthy
}

// NewHealthy creates a healthy status
func NewHealthy(name, message string) Status {
	return Status{Name: name, Healthy: true, State: StateHealthy, Message: message, CheckedAt: time.Now()}
}

// NewDegraded creates a degraded status
func NewDegraded(name, message string) Status {
	return Status{Name: name, State: StateDegraded, Message: message, CheckedAt: time.Now()}
}

// NewUnhealthy creates an unhealthy status
func NewUnhealthy(name, message string) Status {
	return Status{Name: name, State: StateUnhealthy, Message: message, CheckedAt: time.Now()}
}

// FromError turns a probe result into a status. A nil error slower than
// slow is degraded; slow of zero disables that rule.
func FromError(name string, err error, latency, slow time.Duration) Status {
	var s Status
	switch {
	case err != nil:
		s = NewUnhealthy(name, Sanitize(err.Error()))
	case slow > 0 && latency > slow:
		s = NewDegraded(name, "probe slower than "+slow.String())
	default:
		s = NewHealthy(name, "ok")
	}
	s.Latency = latency
	return s
}

// Aggregate combines sub-statuses: any unhealthy makes the aggregate
// unhealthy, otherwise any degraded makes it degraded.
func Aggregate(name string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(name, "nothing to check")
	}

	hasUnhealthy := false
	hasDegraded := false
	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	switch {
	case hasUnhealthy:
		status = NewUnhealthy(name, "one or more backends are unhealthy")
	case hasDegraded:
		status = NewDegraded(name, "one or more backends are degraded")
	default:
		status = NewHealthy(name, "all backends are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)
	return status
}

// Sanitize removes URLs, file paths, addresses and credentials from an
// error message:
//   - URLs (http://, https://, nats://) → [URL]
//   - File paths (Unix and Windows) → [PATH]
//   - IP addresses → [IP]
//   - Port numbers (:8080) → [PORT]
//   - Credentials (password=X, token=X, key=X, secret=X) → [REDACTED]
func Sanitize(msg string) string {
	if msg == "" {
		return ""
	}

	sanitized := msg

	// URLs first, they contain paths
	sanitized = httpURLRegex.ReplaceAllString(sanitized, "[URL]")
	sanitized = natsURLRegex.ReplaceAllString(sanitized, "[URL]")

	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") ||
		strings.Contains(lower, "key") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "credential") {
		sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
	}

	return sanitized
}
