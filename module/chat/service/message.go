package service

import (
	"context"
	"time"

	chatmodel "chatserve/module/chat/model"
	"chatserve/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListMessages returns the chat's messages in send order, populated, and
// marks every message the caller had not read yet ($addToSet, idempotent).
func ListMessages(ctx context.Context, selfID, chatID primitive.ObjectID) ([]chatmodel.MessageView, error) {
	chat, err := findChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasUser(selfID) {
		return nil, errs.ErrNotMember.Wrap()
	}

	var msg chatmodel.Message
	cur, err := msg.Collection().Find(ctx,
		bson.M{"chat": chatID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "list messages")
	}
	defer cur.Close(ctx)

	var msgs []chatmodel.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, errs.WrapMsg(err, "decode messages")
	}

	// mark unread as read for the caller
	unread := make([]primitive.ObjectID, 0)
	for i := range msgs {
		if !containsID(msgs[i].ReadBy, selfID) {
			unread = append(unread, msgs[i].ID)
			msgs[i].ReadBy = append(msgs[i].ReadBy, selfID)
		}
	}
	if len(unread) > 0 {
		_, err := msg.Collection().UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": unread}},
			bson.M{"$addToSet": bson.M{"read_by": selfID}},
		)
		if err != nil {
			return nil, errs.WrapMsg(err, "mark messages read")
		}
	}

	chatV, err := populateChat(ctx, chat)
	if err != nil {
		return nil, err
	}

	userIDs := append([]primitive.ObjectID{}, chat.Users...)
	for _, m := range msgs {
		userIDs = append(userIDs, m.Sender)
		userIDs = append(userIDs, m.ReadBy...)
	}
	users, err := loadUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]chatmodel.MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := messageView(m, users)
		v.Chat = chatV
		views = append(views, v)
	}
	return views, nil
}

// SendMessage persists a message after verifying membership, updates the
// chat's latest message pointer and returns the populated document. The relay
// broadcast is a separate, independent step taken by the client.
func SendMessage(ctx context.Context, selfID, chatID primitive.ObjectID, content string) (*chatmodel.MessageView, error) {
	if content == "" {
		return nil, errs.ErrArgs.WrapMsg("content and chatId are required")
	}

	chat, err := findChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasUser(selfID) {
		return nil, errs.ErrNotMember.Wrap()
	}

	now := time.Now()
	msg := chatmodel.Message{
		Sender:    selfID,
		Content:   content,
		Chat:      chatID,
		ReadBy:    []primitive.ObjectID{selfID}, // read by sender
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := msg.Collection().InsertOne(ctx, &msg)
	if err != nil {
		return nil, errs.WrapMsg(err, "insert message")
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)

	_, err = chat.Collection().UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$set": bson.M{"latest_message": msg.ID, "updated_at": now}},
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "update latest message")
	}

	chatV, err := populateChat(ctx, chat)
	if err != nil {
		return nil, err
	}
	users, err := loadUsers(ctx, append([]primitive.ObjectID{msg.Sender}, chat.Users...))
	if err != nil {
		return nil, err
	}
	v := messageView(msg, users)
	v.Chat = chatV
	return &v, nil
}

// ReadStatus is the refreshed read-by set broadcast after a read receipt.
type ReadStatus struct {
	MessageID string   `json:"messageId"`
	ReadBy    []string `json:"readBy"`
}

// AddMessageReader adds userID to the message's read-by set if absent, then
// re-reads the set. Applying it repeatedly has no further effect. Returns
// ErrRecordNotFound when the message id does not exist.
func AddMessageReader(ctx context.Context, messageID, userID string) (*ReadStatus, error) {
	msgID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("malformed messageId", "messageId", messageID)
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("malformed userId", "userId", userID)
	}

	var msg chatmodel.Message
	err = msg.Collection().FindOneAndUpdate(ctx,
		bson.M{"_id": msgID},
		bson.M{"$addToSet": bson.M{"read_by": uid}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("message not found", "messageId", messageID)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "add message reader")
	}

	readBy := make([]string, 0, len(msg.ReadBy))
	for _, id := range msg.ReadBy {
		readBy = append(readBy, id.Hex())
	}
	return &ReadStatus{MessageID: messageID, ReadBy: readBy}, nil
}
