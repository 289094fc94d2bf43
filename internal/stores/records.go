package stores

import "time"

// Outcome values shared by sessions and challenges. Pending is the creation
// default; Aborted and Succeeded are terminal and never revert.
const (
	OutcomePending   = "Pending"
	OutcomeAborted   = "Aborted"
	OutcomeSucceeded = "Succeeded"
)

// StatusOk is the only status value that advances a message sequence. Every
// other resolved status has the form "Error:<reason>". An empty StatusMsg
// means the message is still pending.
const StatusOk = "Ok"

// SessionRecord is one login attempt against a fixed account + schema version.
type SessionRecord struct {
	SessionID      string
	AccountID      string
	AccountVersion uint32
	Outcome        string
}

// DefRecord is the immutable declaration of a challenge for one account
// schema version. Sequence is derived from ChallengeType and is not stored.
type DefRecord struct {
	ChallengeID    string
	AccountVersion uint32
	ChallengeType  string
	Parameters     []byte
	Sequence       []string
}

// ChallengeRecord is one challenge instance within a session, joined with its
// immutable def on read.
type ChallengeRecord struct {
	SessionID   string
	ChallengeID string
	Outcome     string
	Def         DefRecord
}

// MessageRecord is one message instance within a challenge. Request and
// Expected are set at creation and immutable; Response and StatusMsg start
// empty and are written exactly once.
type MessageRecord struct {
	Seq         int64
	SessionID   string
	ChallengeID string
	Name        string
	Request     []byte
	Expected    []byte
	Response    []byte
	StatusMsg   string
	CreatedAt   time.Time
}

// Resolved reports whether the message has been processed (status written).
func (m *MessageRecord) Resolved() bool {
	return m.StatusMsg != ""
}

// Ok reports whether the message resolved successfully.
func (m *MessageRecord) Ok() bool {
	return m.StatusMsg == StatusOk
}
