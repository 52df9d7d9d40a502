package manager

// broadcastSchedule tracks the next step a periodic channel fires on. Using
// an explicit next-fire marker instead of step modulo keeps firing correct
// even if steps are skipped.
type broadcastSchedule struct {
	period int
	next   int
}

func newBroadcastSchedule(period int) *broadcastSchedule {
	return &broadcastSchedule{period: period, next: period}
}

// due reports whether the channel fires at this step and advances the
// next-fire marker past it.
func (s *broadcastSchedule) due(step int) bool {
	if step < s.next {
		return false
	}
	for s.next <= step {
		s.next += s.period
	}
	return true
}

// accountCommunication models the three periodic V2X channels. The
// channels are independent and purely additive within a step.
func (sm *SafetyManager) accountCommunication() int {
	failures := 0

	if sm.rsuSchedule.due(sm.step) {
		sm.Stats.RSUMessages += sm.vehiclesInRSURange()
	}

	if sm.v2vSchedule.due(sm.step) {
		sm.Stats.V2VMessages += sm.presentCount / 3
	}

	if sm.signalSchedule.due(sm.step) {
		ids, err := sm.engine.TrafficControlIDs()
		if err != nil {
			failures++
			sm.Stats.SignalBroadcasts += sm.cfg.SignalFallback
		} else {
			sm.Stats.SignalBroadcasts += len(ids)
		}
	}

	return failures
}

// vehiclesInRSURange sums, over all roadside units, the vehicles whose last
// known position lies within range. Boundary inclusive; vehicles without a
// position contribute nothing.
func (sm *SafetyManager) vehiclesInRSURange() int {
	total := 0
	for _, rsu := range sm.cfg.RSUs {
		for _, rec := range sm.Vehicles {
			if pos, ok := rec.LastPosition(); ok && rsu.Covers(pos) {
				total++
			}
		}
	}
	return total
}
