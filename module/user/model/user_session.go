package model

import (
	"time"

	mgo "chatserve/service/mgo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserSession records a login. Only the token hash is stored, never the token.
type UserSession struct {
	SessionID string             `bson:"session_id" json:"sessionId"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	TokenHash string             `bson:"token_hash" json:"-"`
	LoginTime time.Time          `bson:"login_time" json:"loginTime"`
	ExpireAt  time.Time          `bson:"expire_at" json:"expireAt"`
}

func (s *UserSession) GetTableName() string {
	return "sessions"
}

func (s *UserSession) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(s.GetTableName())
}
