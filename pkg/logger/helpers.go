package logger

import "time"

// LogAction logs the outcome of one automated action against a candidate item
func LogAction(action, itemID string, success bool, err error) {
	fields := map[string]interface{}{
		"action":  action,
		"item_id": itemID,
		"success": success,
	}

	l := GetLogger().WithFields(fields)

	if err != nil {
		l.WithError(err).Error("action failed")
	} else if success {
		l.Info("action completed")
	} else {
		l.Debug("action skipped")
	}
}

// LogRateLimit logs a throttle denial
func LogRateLimit(scope string, retryAfter time.Duration) {
	GetLogger().WithFields(map[string]interface{}{
		"scope":       scope,
		"retry_after": retryAfter,
	}).Warn("rate limit reached, backing off")
}

// LogCollection logs the outcome of one collection round
func LogCollection(source string, round, newItems, total int) {
	GetLogger().WithFields(map[string]interface{}{
		"source":    source,
		"round":     round,
		"new_items": newItems,
		"total":     total,
	}).Debug("collection round completed")
}

// LogSessionState logs a session state transition
func LogSessionState(sessionID, from, to string) {
	GetLogger().WithFields(map[string]interface{}{
		"session_id": sessionID,
		"from":       from,
		"to":         to,
	}).Info("session state changed")
}
