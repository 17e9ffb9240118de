package manager

// logResult records the outcome of a remote call made on behalf of op and
// reports whether it succeeded.
func (m *Manager) logResult(op string, err error) bool {
	if err != nil {
		m.metrics.remoteCalls.WithLabelValues(op, "error").Inc()
		m.logger.Warn(err.Error(), "op", op)
		return false
	}
	m.metrics.remoteCalls.WithLabelValues(op, "ok").Inc()
	m.logger.Debug("OK", "op", op)
	return true
}
