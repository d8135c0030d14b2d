package notification

import "time"

// qualifiesForPriorityAlert: unread, flagged, and either a new-user record
// or urgent.
func qualifiesForPriorityAlert(n *Notification) bool {
	if n.IsRead || !n.PriorityAlert() {
		return false
	}
	return isNewUser(n) || n.Priority == PriorityUrgent
}

func (e *Engine) hasPriorityAlerts() bool {
	for i := range e.items {
		if qualifiesForPriorityAlert(&e.items[i].n) {
			return true
		}
	}
	return false
}

// reevaluateAlert moves between Idle and Alerting. At most one ticker
// exists; entering Alerting while already there keeps the running one.
func (e *Engine) reevaluateAlert() {
	want := e.soundEnabled && e.hasPriorityAlerts()
	switch {
	case want && e.alertTicker == nil:
		e.alertTicker = e.opts.NewTicker(e.opts.PriorityAlertInterval)
		e.dirty = true
		e.log.Debug("priority alerting started")
	case !want && e.alertTicker != nil:
		e.stopAlert()
	}
}

func (e *Engine) stopAlert() {
	if e.alertTicker == nil {
		return
	}
	e.alertTicker.Stop()
	e.alertTicker = nil
	e.dirty = true
	e.log.Debug("priority alerting stopped")
}

func (e *Engine) onAlertTick() {
	if !e.soundEnabled || !e.hasPriorityAlerts() {
		e.stopAlert()
		return
	}
	e.presenter.play(CuePriorityAlert)
	e.metrics.PriorityAlert()
}

func (e *Engine) alertC() <-chan time.Time {
	if e.alertTicker == nil {
		return nil
	}
	return e.alertTicker.C()
}
