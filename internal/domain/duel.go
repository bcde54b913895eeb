package domain

import (
	"fmt"
	"time"
)

// DuelState represents the lifecycle state of a duel session
type DuelState string

const (
	DuelStatePreparing DuelState = "preparing"
	DuelStateRunning   DuelState = "running"
	DuelStateEnded     DuelState = "ended"
)

// PoolSize is the number of problems selected for every duel
const PoolSize = 5

// PointsPerRank is the score step between adjacent difficulty ranks
const PointsPerRank = 100

// Problem is one judge problem selected into a duel pool.
// ContestID+Index identify it on the judge; Points is assigned once
// at pool construction and never changes afterwards.
type Problem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags"`
	Points    int      `json:"points,omitempty"`
}

// URL returns the judge-facing problem link
func (p Problem) URL() string {
	return fmt.Sprintf("http://codeforces.com/contest/%d/problem/%s", p.ContestID, p.Index)
}

// Key returns the stable source identifier (contest id + index)
func (p Problem) Key() string {
	return fmt.Sprintf("%d%s", p.ContestID, p.Index)
}

// VerdictAccepted is the judge verdict for a successful submission
const VerdictAccepted = "OK"

// Submission is a participant's submission as reported by the judge
type Submission struct {
	ID        int64  `json:"id"`
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Verdict   string `json:"verdict"`
}

// Accepted reports whether the submission solved its problem
func (s Submission) Accepted() bool {
	return s.Verdict == VerdictAccepted
}

// RatingBand is the inclusive difficulty range problems are drawn from
type RatingBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether r is within the band
func (b RatingBand) Contains(r int) bool {
	return r >= b.Min && r <= b.Max
}

func (b RatingBand) String() string {
	return fmt.Sprintf("[%d, %d]", b.Min, b.Max)
}

// DuelConfig carries everything the orchestration layer supplies when
// starting a duel: two participant identities, a rating band and a duration.
type DuelConfig struct {
	PlayerA  string
	PlayerB  string
	Band     RatingBand
	Duration time.Duration
}

// AnnouncementField is one name/value pair in a structured announcement
type AnnouncementField struct {
	Name  string
	Value string
}

// Announcement is a structured message for the notification channel
// (title, severity color, field list).
type Announcement struct {
	Title  string
	Color  int
	Fields []AnnouncementField
}

// Announcement colors, matching the judge-duel embed conventions
const (
	ColorStatus = 0xC99136
	ColorEnded  = 0xFF0000
)

// FormatClock renders remaining seconds as "H hours M minutes S seconds"
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d hours %d minutes %d seconds", seconds/3600, (seconds%3600)/60, seconds%60)
}
