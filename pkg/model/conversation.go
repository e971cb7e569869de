package model

import "time"

type Conversation struct {
	ID             string    `json:"id" bson:"_id"`
	BookingID      string    `json:"booking_id" bson:"booking_id"`
	ParticipantIDs []string  `json:"participant_ids" bson:"participant_ids"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

func (c *Conversation) HasParticipant(id string) bool {
	for _, p := range c.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}

type Message struct {
	ID             string    `json:"id" bson:"_id"`
	ConversationID string    `json:"conversation_id" bson:"conversation_id"`
	SenderID       string    `json:"sender_id" bson:"sender_id"`
	Body           string    `json:"body" bson:"body"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

type PostMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// Profile is participant display data resolved from the identity provider.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type ConversationView struct {
	Conversation *Conversation `json:"conversation"`
	Participants []Profile     `json:"participants"`
}
