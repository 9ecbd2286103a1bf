package logging

// MockLogger captures log entries for verification in tests.
type MockLogger struct {
	Entries       []LogEntry
	pendingError  error
	pendingFields []Field
}

// LogEntry is a single entry captured by MockLogger.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

func (m *MockLogger) record(level, msg string, fields []Field) {
	allFields := append(m.pendingFields, fields...)
	m.Entries = append(m.Entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  allFields,
		Error:   m.pendingError,
	})
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.record("DEBUG", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.record("INFO", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.record("WARN", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.record("ERROR", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...Field) { m.record("FATAL", msg, fields) }

// WithError returns the same mock with a pending error attached to the
// next entry.
func (m *MockLogger) WithError(err error) Logger {
	m.pendingError = err
	return m
}

// WithField returns the same mock with a pending field attached.
func (m *MockLogger) WithField(key string, value interface{}) Logger {
	m.pendingFields = append(m.pendingFields, Field{Key: key, Value: value})
	return m
}

// WithFields returns the same mock with pending fields attached.
func (m *MockLogger) WithFields(fields ...Field) Logger {
	m.pendingFields = append(m.pendingFields, fields...)
	return m
}

// HasMessage reports whether any captured entry carries the given message.
func (m *MockLogger) HasMessage(msg string) bool {
	for _, e := range m.Entries {
		if e.Message == msg {
			return true
		}
	}
	return false
}
