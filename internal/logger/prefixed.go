package logger

import "fmt"

// AccountLogger tags every line with an account id so interleaved
// per-account output stays readable.
type AccountLogger struct {
	inner     Logger
	accountID string
}

func ForAccount(inner Logger, accountID string) *AccountLogger {
	return &AccountLogger{inner: inner, accountID: accountID}
}

func (a *AccountLogger) tag(msg string) string {
	return fmt.Sprintf("[%s] %s", a.accountID, msg)
}

func (a *AccountLogger) SetLevel(levelStr string) {
	a.inner.SetLevel(levelStr)
}

func (a *AccountLogger) Trace(msg string, args ...any) {
	a.inner.Trace(a.tag(msg), args...)
}

func (a *AccountLogger) Debug(msg string, args ...any) {
	a.inner.Debug(a.tag(msg), args...)
}

func (a *AccountLogger) Info(msg string, args ...any) {
	a.inner.Info(a.tag(msg), args...)
}

func (a *AccountLogger) Warn(msg string, args ...any) {
	a.inner.Warn(a.tag(msg), args...)
}

func (a *AccountLogger) Error(msg string, err error, args ...any) {
	a.inner.Error(a.tag(msg), err, args...)
}

func (a *AccountLogger) Fatal(msg string, err error, args ...any) {
	a.inner.Fatal(a.tag(msg), err, args...)
}
