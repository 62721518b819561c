package internaldefs

import (
	goAttend "github.com/MrEthical07/goAttend"
)

// Def names one exported series.
type Def struct {
	ID   goAttend.MetricID
	Name string
	Help string
}

var CounterDefs = []Def{
	{ID: goAttend.MetricRecoverySuccess, Name: "goattend_recovery_success_total", Help: "Recoveries that restored an authenticated session."},
	{ID: goAttend.MetricRecoveryFailure, Name: "goattend_recovery_failure_total", Help: "Recoveries that failed and cleared the stored credential."},
	{ID: goAttend.MetricRecoveryAnonymous, Name: "goattend_recovery_anonymous_total", Help: "Recoveries that found no stored credential."},
	{ID: goAttend.MetricRecoveryStale, Name: "goattend_recovery_stale_total", Help: "Recovery results discarded after a concurrent login or logout."},
	{ID: goAttend.MetricLogin, Name: "goattend_login_total", Help: "Logins recorded on a session."},
	{ID: goAttend.MetricLogout, Name: "goattend_logout_total", Help: "User-initiated logouts."},
	{ID: goAttend.MetricForcedLogout, Name: "goattend_forced_logout_total", Help: "Logouts forced by a rejected credential."},
	{ID: goAttend.MetricProfileUpdate, Name: "goattend_profile_update_total", Help: "In-session profile replacements."},
	{ID: goAttend.MetricGuardRender, Name: "goattend_guard_render_total", Help: "Guarded requests allowed through."},
	{ID: goAttend.MetricGuardLoading, Name: "goattend_guard_loading_total", Help: "Guarded requests answered with the loading placeholder."},
	{ID: goAttend.MetricGuardRedirectLogin, Name: "goattend_guard_redirect_login_total", Help: "Guarded requests redirected to login."},
	{ID: goAttend.MetricGuardRedirectDefault, Name: "goattend_guard_redirect_default_total", Help: "Guarded requests redirected for insufficient role."},
	{ID: goAttend.MetricSessionCreated, Name: "goattend_session_created_total", Help: "Browsing sessions created."},
	{ID: goAttend.MetricSessionEvicted, Name: "goattend_session_evicted_total", Help: "Browsing sessions evicted after idling."},
	{ID: goAttend.MetricTokenPersistFailure, Name: "goattend_token_persist_failure_total", Help: "Credential writes or deletes the durable store rejected."},
	{ID: goAttend.MetricSessionRotated, Name: "goattend_session_rotated_total", Help: "Sign-ins that issued a fresh browsing-session id."},
}

var HistogramDefs = []Def{
	{ID: goAttend.MetricRecoveryLatency, Name: "goattend_recovery_latency_seconds", Help: "Latency of the profile fetch during recovery."},
}

// HistogramBounds are the upper bounds of the recovery latency buckets, in
// seconds. They mirror the millisecond bounds of goAttend.Metrics.
var HistogramBounds = []string{"0.025", "0.05", "0.1", "0.25", "0.5", "1", "5", "+Inf"}

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes.
var HistogramBoundSuffix = []string{"0_025", "0_05", "0_1", "0_25", "0_5", "1", "5", "inf"}

const (
	AuditDroppedName = "goattend_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped by dispatcher backpressure."
	LiveSessionsName = "goattend_live_sessions"
	LiveSessionsHelp = "Browsing sessions currently held in memory."
)

// CumulativeBuckets turns per-bucket counts into Prometheus-style cumulative
// counts. Short input is zero padded.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
