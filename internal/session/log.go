package session

import "go.uber.org/zap"

// LogEvents logs every cache event at debug level until the returned func is called.
func LogEvents(c *Cache, logger *zap.SugaredLogger) (cancel func()) {
	return c.Subscribe(func(ev Event) {
		fields := []any{"event", ev.Kind.String(), "session_id", ev.Key}
		if ev.Entry != nil {
			fields = append(fields, "user_id", ev.Entry.ID, "normalized_username", ev.Entry.NormalizedUsername)
		}
		logger.Debugw("session cache", fields...)
	})
}
