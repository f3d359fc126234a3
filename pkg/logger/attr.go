package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// Component records which subsystem produced the record under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Provider records a federated identity provider name under "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}
