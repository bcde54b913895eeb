package duel

import "time"

// Tick cadence: sessions tick once per second of wall-clock time and poll
// the judge / broadcast status every pollCadence seconds of duel time.
const (
	tickInterval = time.Second
	pollCadence  = 5
)

// specialTag marks non-competitive catalog entries excluded from pools
const specialTag = "*special"

// Announcement titles and reasons
const (
	TitleDuelEnded       = "The duel has ended"
	ReasonForceEnded     = "The duel has been force ended"
	ReasonStatusDelivery = "Error updating duel status. Please try again."
	ReasonSetupJudge     = "There is some problem with the judge API while fetching problems, please try again later"
	ReasonSetupPoolSize  = "Not enough problems in the requested rating range to start a duel"
)

// Log message constants
const (
	logMsgSubmissionCheck     = "Error checking submissions"
	logMsgStatusDelivery      = "Error delivering duel status"
	logMsgSolveDetected       = "Solve detected"
	logMsgStaleLockCleared    = "Cleared stale duel lock"
	logMsgDuelStarted         = "Duel started"
	logMsgDuelEnded           = "Duel ended"
	logMsgLockReleaseFailed   = "Failed to release duel lock"
	logMsgFinalAnnounceFailed = "Failed to deliver final duel announcement"
)
