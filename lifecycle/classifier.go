package lifecycle

import "time"

// Input is the subset of a workspace record the classifier reads.
type Input struct {
	LastConnection *time.Time
	CreationDate   *time.Time
}

// Classify maps a workspace's timestamps to a lifecycle decision.
//
// Never-connected workspaces are judged by creation date against the grace
// period; connected ones by last connection. The warn check matches the
// exact calendar day of now-WarnDays, so a cycle that misses that day sends
// no warning and the workspace goes straight to termination at cutoff.
func Classify(in Input, now time.Time, th Thresholds) Decision {
	now = now.UTC()

	if in.LastConnection == nil {
		if in.CreationDate == nil {
			return NoAction()
		}
		graceStart := now.AddDate(0, 0, -th.NeverUsedGraceDays)
		if in.CreationDate.UTC().Before(graceStart) {
			return Terminate(ReasonNeverUsedGraceExpired)
		}
		return NoAction()
	}

	last := in.LastConnection.UTC()
	if sameDay(last, now.AddDate(0, 0, -th.WarnDays)) {
		return Warn(th.CutoffDays - th.WarnDays)
	}
	if last.Before(now.AddDate(0, 0, -th.CutoffDays)) {
		return Terminate(ReasonCutoffExceeded)
	}
	return NoAction()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IdleDays returns whole days since the last connection, or since creation
// when the workspace never connected. The second result is false when
// neither timestamp is known.
func IdleDays(in Input, now time.Time) (int, bool) {
	var since time.Time
	switch {
	case in.LastConnection != nil:
		since = *in.LastConnection
	case in.CreationDate != nil:
		since = *in.CreationDate
	default:
		return 0, false
	}
	return int(now.UTC().Sub(since.UTC()).Hours() / 24), true
}
