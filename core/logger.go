package core

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor is the externally authenticated admin or teacher on whose behalf an operation runs.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}
