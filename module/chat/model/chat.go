package model

import (
	"time"

	usermodel "chatserve/module/user/model"
	mgo "chatserve/service/mgo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Chat is a conversation document. A 1:1 chat has exactly two users and no
// admin; a group chat carries the creator as GroupAdmin.
type Chat struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	ChatName      string               `bson:"chat_name" json:"chatName"`
	IsGroupChat   bool                 `bson:"is_group_chat" json:"isGroupChat"`
	Users         []primitive.ObjectID `bson:"users" json:"users"`
	GroupAdmin    primitive.ObjectID   `bson:"group_admin,omitempty" json:"groupAdmin,omitempty"`
	LatestMessage primitive.ObjectID   `bson:"latest_message,omitempty" json:"latestMessage,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ChatView is the populated response shape: member ids expanded to user
// documents, the latest message expanded in list responses.
type ChatView struct {
	ID            primitive.ObjectID `json:"_id"`
	ChatName      string             `json:"chatName"`
	IsGroupChat   bool               `json:"isGroupChat"`
	Users         []usermodel.Public `json:"users"`
	GroupAdmin    *usermodel.Public  `json:"groupAdmin,omitempty"`
	LatestMessage *MessageView       `json:"latestMessage,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

func (c *Chat) GetTableName() string {
	return "chats"
}

func (c *Chat) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}

// HasUser reports membership.
func (c *Chat) HasUser(id primitive.ObjectID) bool {
	for _, u := range c.Users {
		if u == id {
			return true
		}
	}
	return false
}
