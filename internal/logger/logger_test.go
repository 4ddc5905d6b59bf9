package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerValidLevel(t *testing.T) {
	log := NewLogger("debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	log := NewLogger("nonsense")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewLoggerFormatterByEnv(t *testing.T) {
	t.Setenv("CROSSCHECK_ENV", "production")
	log := NewLogger("info")
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	t.Setenv("CROSSCHECK_ENV", "")
	log = NewLogger("info")
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestStudyLoggerEvaluationStarted(t *testing.T) {
	log, buf := setupTestLogger()
	studyLogger := NewStudyLogger(log)

	studyLogger.LogEvaluationStarted("run_001", "AAPL", "SPY", 504)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "run_001", logEntry["run_id"])
	assert.Equal(t, "AAPL", logEntry["ticker"])
	assert.Equal(t, "SPY", logEntry["benchmark"])
	assert.Equal(t, "study", logEntry["component"])
}

func TestStudyLoggerEventsDetected(t *testing.T) {
	log, buf := setupTestLogger()
	studyLogger := NewStudyLogger(log)

	studyLogger.LogEventsDetected("run_001", "AAPL", 9, 4, 3, 1, 1)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(9), logEntry["raw_events"])
	assert.Equal(t, float64(4), logEntry["valid_events"])
}

func TestStudyLoggerModelFallback(t *testing.T) {
	log, buf := setupTestLogger()
	studyLogger := NewStudyLogger(log)

	studyLogger.LogModelFallback("run_001", "AAPL", 87, 63, 120)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(63), logEntry["overlap_bars"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestStudyLoggerSignificanceSummary(t *testing.T) {
	log, buf := setupTestLogger()
	studyLogger := NewStudyLogger(log)

	studyLogger.LogSignificanceSummary("run_001", "AAPL", 5, 14, 0.032, 0.075, true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(5), logEntry["horizon"])
	assert.Equal(t, 0.032, logEntry["p_value"])
	assert.Equal(t, true, logEntry["significant"])
}

func TestStudyLoggerEvaluationCompleted(t *testing.T) {
	log, buf := setupTestLogger()
	studyLogger := NewStudyLogger(log)

	studyLogger.LogEvaluationCompleted("run_001", "AAPL", "BUY", 5, 812.4)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "BUY", logEntry["verdict"])
	assert.Equal(t, float64(5), logEntry["chosen_horizon"])
}

func TestAuditLoggerVerdictIssued(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogVerdictIssued("run_001", "AAPL", "BUY", 5, 0.0123, 0.075, true, time.Now())

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "BUY", logEntry["verdict"])
	assert.Equal(t, true, logEntry["gates_passed"])
}

func TestAuditLoggerVerdictPersisted(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogVerdictPersisted("run_001", "AAPL", "HOLD", "postgres")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "postgres", logEntry["storage"])
}

func TestAuditLoggerProviderIncident(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogProviderIncident("circuit_breaker_open", "ohlcv_api", "consecutive_failures", map[string]interface{}{
		"failures": 5,
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "circuit_breaker_open", logEntry["event_type"])
	assert.Equal(t, "warning", logEntry["level"])
}
