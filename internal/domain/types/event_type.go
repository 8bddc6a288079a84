package types

type MatchEvent string

func (s MatchEvent) String() string {
	return string(s)
}

const (
	EventMatchRequested MatchEvent = "MATCH_REQUESTED"
	EventMatchAccepted  MatchEvent = "MATCH_ACCEPTED"
	EventMatchRejected  MatchEvent = "MATCH_REJECTED"
	EventChatClosed     MatchEvent = "CHAT_CLOSED"
	EventChatHistory    MatchEvent = "CHAT_HISTORY"
	EventMessageSent    MatchEvent = "MESSAGE_SENT"
	EventMessageDropped MatchEvent = "MESSAGE_DROPPED"
	EventProfileChanged MatchEvent = "PROFILE_CHANGED"
)
