package types

import "time"

// ChatSession is an exclusive pairing of two accounts for live anonymous
// chat. Each account appears in at most one active session, on either side.
type ChatSession struct {
	ID        int64
	User1ID   int64
	User2ID   int64
	CreatedAt time.Time
}

// ChatOverview is the admin-panel view of an active session.
type ChatOverview struct {
	SessionID int64
	User1ID   int64
	User2ID   int64
	CreatedAt time.Time
	User1Name string
	User2Name string
}

type StateName string

// Dialog states, one per in-flight conversation flow. Idle is the absence
// of a stored state.
const (
	StateWaitingQuestion  StateName = "waiting_for_question"
	StateInChat           StateName = "in_chat"
	StateBanWaitUserID    StateName = "ban:user_id"
	StateBanWaitDuration  StateName = "ban:duration"
	StateBanWaitReason    StateName = "ban:reason"
	StateUnbanWaitUserID  StateName = "unban:user_id"
	StateSearchWaitUserID StateName = "search:user_id"
	StateBroadcastCompose StateName = "broadcast:message"
)

// DialogState is the per-user conversation position kept in Redis between
// updates. Payload carries flow-specific data such as the target user id.
type DialogState struct {
	Name    StateName `json:"name"`
	Payload string    `json:"payload,omitempty"`
}
