package dto

import "github.com/torimichi/guide-match-system/pkg/validator"

type SendMessageRequest struct {
	Text      string `json:"text"`
	ClientTag string `json:"client_tag,omitempty"`
}

func (r *SendMessageRequest) Validate(v *validator.Validator) {
	v.Check(r.Text != "", "text", "must be provided")
	v.Check(len(r.Text) <= 4000, "text", "must not be more than 4000 bytes long")
	v.Check(len(r.ClientTag) <= 100, "client_tag", "must not be more than 100 bytes long")
}

// InboundChatMessage is what a websocket client sends to post a message over
// the live connection.
type InboundChatMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	ClientTag string `json:"client_tag,omitempty"`
}
