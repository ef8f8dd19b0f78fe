package logger

// NopLogger discards everything. Used in tests.
type NopLogger struct{}

func Nop() *NopLogger { return &NopLogger{} }

func (*NopLogger) SetLevel(string)                  {}
func (*NopLogger) Trace(string, ...any)             {}
func (*NopLogger) Debug(string, ...any)             {}
func (*NopLogger) Info(string, ...any)              {}
func (*NopLogger) Warn(string, ...any)              {}
func (*NopLogger) Error(string, error, ...any)      {}
func (*NopLogger) Fatal(msg string, _ error, _ ...any) {
	panic("fatal: " + msg)
}
