// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging for issued verdicts.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogVerdictIssued logs an issued verdict with its evidence summary.
func (al *AuditLogger) LogVerdictIssued(runID, ticker, verdict string, chosenHorizon int, netReturn, qValue float64, gatesPassed bool, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"run_id":         runID,
		"ticker":         ticker,
		"verdict":        verdict,
		"chosen_horizon": chosenHorizon,
		"net_return":     netReturn,
		"q_value":        qValue,
		"gates_passed":   gatesPassed,
		"timestamp":      timestamp.Unix(),
	}).Info("Verdict issued")
}

// LogVerdictPersisted logs a verdict write to storage.
func (al *AuditLogger) LogVerdictPersisted(runID, ticker, verdict, storage string) {
	al.WithFields(logrus.Fields{
		"run_id":  runID,
		"ticker":  ticker,
		"verdict": verdict,
		"storage": storage,
	}).Info("Verdict persisted")
}

// LogParameterChange logs study parameter changes between runs.
func (al *AuditLogger) LogParameterChange(parameterName string, oldValue, newValue interface{}, changedBy string) {
	al.WithFields(logrus.Fields{
		"parameter_name": parameterName,
		"old_value":      oldValue,
		"new_value":      newValue,
		"changed_by":     changedBy,
	}).Info("Study parameter changed")
}

// LogProviderIncident logs provider-side incidents such as circuit breaker
// trips or untrusted payloads.
func (al *AuditLogger) LogProviderIncident(eventType, provider, reason string, snapshot map[string]interface{}) {
	al.WithFields(logrus.Fields{
		"event_type": eventType,
		"provider":   provider,
		"reason":     reason,
		"snapshot":   snapshot,
	}).Warn("Provider incident recorded")
}
