package model

import (
	"time"

	usermodel "chatserve/module/user/model"
	mgo "chatserve/service/mgo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Message is a persisted chat message. ReadBy always contains the sender.
type Message struct {
	ID      primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Sender  primitive.ObjectID   `bson:"sender" json:"sender"`
	Content string               `bson:"content" json:"content"`
	Chat    primitive.ObjectID   `bson:"chat" json:"chat"`
	ReadBy  []primitive.ObjectID `bson:"read_by" json:"readBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// MessageView is the populated response shape.
type MessageView struct {
	ID        primitive.ObjectID `json:"_id"`
	Sender    usermodel.Public   `json:"sender"`
	Content   string             `json:"content"`
	Chat      *ChatView          `json:"chat,omitempty"`
	ReadBy    []usermodel.Public `json:"readBy"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

func (m *Message) GetTableName() string {
	return "messages"
}

func (m *Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}
