// Package logger provides study-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// StudyLogger provides dedicated logging for event-study evaluations.
type StudyLogger struct {
	*logrus.Entry
}

// NewStudyLogger creates a new study logger.
func NewStudyLogger(baseLogger *logrus.Logger) *StudyLogger {
	return &StudyLogger{
		Entry: baseLogger.WithField("component", "study"),
	}
}

// LogEvaluationStarted logs the start of a ticker evaluation.
func (sl *StudyLogger) LogEvaluationStarted(runID, ticker, benchmark string, barCount int) {
	sl.WithFields(logrus.Fields{
		"run_id":    runID,
		"ticker":    ticker,
		"benchmark": benchmark,
		"bar_count": barCount,
	}).Info("Evaluation started")
}

// LogEventsDetected logs the outcome of crossover detection.
func (sl *StudyLogger) LogEventsDetected(runID, ticker string, rawEvents, validEvents, persistenceRejects, cooldownRejects, conflictRejects int) {
	sl.WithFields(logrus.Fields{
		"run_id":              runID,
		"ticker":              ticker,
		"raw_events":          rawEvents,
		"valid_events":        validEvents,
		"persistence_rejects": persistenceRejects,
		"cooldown_rejects":    cooldownRejects,
		"conflict_rejects":    conflictRejects,
	}).Info("Crossover detection completed")
}

// LogModelFallback logs a market-model fit that fell back to passthrough
// coefficients for lack of overlapping history.
func (sl *StudyLogger) LogModelFallback(runID, ticker string, eventIndex, overlapBars, minOverlapBars int) {
	sl.WithFields(logrus.Fields{
		"run_id":           runID,
		"ticker":           ticker,
		"event_index":      eventIndex,
		"overlap_bars":     overlapBars,
		"min_overlap_bars": minOverlapBars,
	}).Warn("Market model fell back to passthrough coefficients")
}

// LogSignificanceSummary logs the per-horizon significance outcome.
func (sl *StudyLogger) LogSignificanceSummary(runID, ticker string, horizon, sampleSize int, pValue, qValue float64, significant bool) {
	sl.WithFields(logrus.Fields{
		"run_id":      runID,
		"ticker":      ticker,
		"horizon":     horizon,
		"sample_size": sampleSize,
		"p_value":     pValue,
		"q_value":     qValue,
		"significant": significant,
	}).Info("Horizon significance computed")
}

// LogEvaluationCompleted logs evaluation completion with the verdict.
func (sl *StudyLogger) LogEvaluationCompleted(runID, ticker, verdict string, chosenHorizon int, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"run_id":                 runID,
		"ticker":                 ticker,
		"verdict":                verdict,
		"chosen_horizon":         chosenHorizon,
		"evaluation_duration_ms": durationMs,
	}).Info("Evaluation completed")
}

// LogEvaluationSkipped logs a ticker that produced no evaluable events.
func (sl *StudyLogger) LogEvaluationSkipped(runID, ticker, reason string) {
	sl.WithFields(logrus.Fields{
		"run_id": runID,
		"ticker": ticker,
		"reason": reason,
	}).Info("Evaluation skipped")
}
