package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Message struct {
	Id               uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationId   string            `gorm:"type:text;not null;index:idx_messages_conversation_ts,priority:1"`
	Timestamp        time.Time         `gorm:"autoCreateTime;index:idx_messages_conversation_ts,priority:2,sort:desc"`
	Body             string            `gorm:"type:text;not null"`
	SenderUrn        string            `gorm:"type:text;not null;index"`
	ReceiverUrn      string            `gorm:"type:text;not null;index"`
	SenderName       string            `gorm:"type:text"`
	ReceiverName     string            `gorm:"type:text"`
	MessageKind      string            `gorm:"type:text;not null"`
	ConversationKind string            `gorm:"type:text;not null"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb"`
	IsDeleted        bool              `gorm:"default:false"`
	IsRead           bool              `gorm:"default:false"`
	Priority         int               `gorm:"default:0"`
}

func (Message) TableName() string {
	return "messages"
}
