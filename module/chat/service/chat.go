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

// AccessChat returns the 1:1 chat between self and other, creating it if it
// does not exist yet.
func AccessChat(ctx context.Context, selfID, otherID primitive.ObjectID) (*chatmodel.ChatView, error) {
	var chat chatmodel.Chat
	coll := chat.Collection()

	err := coll.FindOne(ctx, bson.M{
		"is_group_chat": false,
		"users":         bson.M{"$all": bson.A{selfID, otherID}},
	}).Decode(&chat)
	if err == nil {
		return populateChat(ctx, &chat)
	}
	if err != mongo.ErrNoDocuments {
		return nil, errs.WrapMsg(err, "find direct chat")
	}

	now := time.Now()
	chat = chatmodel.Chat{
		ChatName:    "sender",
		IsGroupChat: false,
		Users:       []primitive.ObjectID{selfID, otherID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := coll.InsertOne(ctx, &chat)
	if err != nil {
		return nil, errs.WrapMsg(err, "create direct chat")
	}
	chat.ID = res.InsertedID.(primitive.ObjectID)
	return populateChat(ctx, &chat)
}

// FetchChats lists every chat containing self, most recently updated first,
// with users, admin and latest message populated.
func FetchChats(ctx context.Context, selfID primitive.ObjectID) ([]chatmodel.ChatView, error) {
	var chat chatmodel.Chat
	cur, err := chat.Collection().Find(ctx,
		bson.M{"users": selfID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "list chats")
	}
	defer cur.Close(ctx)

	var chats []chatmodel.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, errs.WrapMsg(err, "decode chats")
	}
	return populateChats(ctx, chats, true)
}

// CreateGroup creates a group chat with self as admin and member.
func CreateGroup(ctx context.Context, selfID primitive.ObjectID, name string, memberIDs []primitive.ObjectID) (*chatmodel.ChatView, error) {
	if name == "" || len(memberIDs) == 0 {
		return nil, errs.ErrArgs.WrapMsg("provide group name and members")
	}

	users := append([]primitive.ObjectID{}, memberIDs...)
	if !containsID(users, selfID) {
		users = append(users, selfID)
	}

	now := time.Now()
	chat := chatmodel.Chat{
		ChatName:    name,
		IsGroupChat: true,
		Users:       users,
		GroupAdmin:  selfID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	res, err := chat.Collection().InsertOne(ctx, &chat)
	if err != nil {
		return nil, errs.WrapMsg(err, "create group chat")
	}
	chat.ID = res.InsertedID.(primitive.ObjectID)
	return populateChat(ctx, &chat)
}

// RenameGroup renames a group; admin only.
func RenameGroup(ctx context.Context, selfID, chatID primitive.ObjectID, name string) (*chatmodel.ChatView, error) {
	if name == "" {
		return nil, errs.ErrArgs.WrapMsg("provide chatId and new name")
	}
	chat, err := requireAdmin(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	return updateChat(ctx, chat.ID, bson.M{"$set": bson.M{"chat_name": name, "updated_at": time.Now()}})
}

// AddToGroup adds a member; admin only, duplicates rejected.
func AddToGroup(ctx context.Context, selfID, chatID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	chat, err := requireAdmin(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	if chat.HasUser(userID) {
		return nil, errs.ErrArgs.WrapMsg("user already in group")
	}
	return updateChat(ctx, chat.ID, bson.M{
		"$push": bson.M{"users": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// RemoveFromGroup removes a member; admin only, and the admin cannot remove
// themselves (delete the group instead).
func RemoveFromGroup(ctx context.Context, selfID, chatID, userID primitive.ObjectID) (*chatmodel.ChatView, error) {
	chat, err := requireAdmin(ctx, selfID, chatID)
	if err != nil {
		return nil, err
	}
	if userID == selfID {
		return nil, errs.ErrArgs.WrapMsg("admin cannot be removed, use delete group instead")
	}
	return updateChat(ctx, chat.ID, bson.M{
		"$pull": bson.M{"users": userID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// LeaveGroup removes self from a group; the admin cannot leave.
func LeaveGroup(ctx context.Context, selfID, chatID primitive.ObjectID) (*chatmodel.ChatView, error) {
	chat, err := findChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.GroupAdmin == selfID {
		return nil, errs.ErrArgs.WrapMsg("admin cannot leave group, delete the group instead")
	}
	return updateChat(ctx, chat.ID, bson.M{
		"$pull": bson.M{"users": selfID},
		"$set":  bson.M{"updated_at": time.Now()},
	})
}

// DeleteGroup deletes a group; admin only.
func DeleteGroup(ctx context.Context, selfID, chatID primitive.ObjectID) error {
	chat, err := requireAdmin(ctx, selfID, chatID)
	if err != nil {
		return err
	}
	if _, err := chat.Collection().DeleteOne(ctx, bson.M{"_id": chat.ID}); err != nil {
		return errs.WrapMsg(err, "delete chat")
	}
	return nil
}

func findChat(ctx context.Context, chatID primitive.ObjectID) (*chatmodel.Chat, error) {
	var chat chatmodel.Chat
	err := chat.Collection().FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("chat not found")
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find chat")
	}
	return &chat, nil
}

func requireAdmin(ctx context.Context, selfID, chatID primitive.ObjectID) (*chatmodel.Chat, error) {
	chat, err := findChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.GroupAdmin != selfID {
		return nil, errs.ErrNoPermission.WrapMsg("only admin can modify the group")
	}
	return chat, nil
}

func updateChat(ctx context.Context, chatID primitive.ObjectID, update bson.M) (*chatmodel.ChatView, error) {
	var chat chatmodel.Chat
	err := chat.Collection().FindOneAndUpdate(ctx,
		bson.M{"_id": chatID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("chat not found")
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "update chat")
	}
	return populateChat(ctx, &chat)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
