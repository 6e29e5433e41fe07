package service

import (
	"context"

	chatmodel "chatserve/module/chat/model"
	usermodel "chatserve/module/user/model"
	"chatserve/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// loadUsers fetches the public projection of the given user ids in one $in
// query. Missing ids are simply absent from the map (deleted accounts).
func loadUsers(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]usermodel.Public, error) {
	out := make(map[primitive.ObjectID]usermodel.Public, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var user usermodel.User
	cur, err := user.Collection().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errs.WrapMsg(err, "load users")
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u usermodel.User
		if err := cur.Decode(&u); err != nil {
			return nil, errs.WrapMsg(err, "decode user")
		}
		out[u.ID] = u.Public()
	}
	return out, errs.Wrap(cur.Err())
}

// populateChats expands member/admin ids and, when requested, the latest
// message of each chat. One round-trip per collection, not per chat.
func populateChats(ctx context.Context, chats []chatmodel.Chat, withLatest bool) ([]chatmodel.ChatView, error) {
	userIDs := make([]primitive.ObjectID, 0, len(chats)*2)
	msgIDs := make([]primitive.ObjectID, 0, len(chats))
	for _, ch := range chats {
		userIDs = append(userIDs, ch.Users...)
		if !ch.GroupAdmin.IsZero() {
			userIDs = append(userIDs, ch.GroupAdmin)
		}
		if withLatest && !ch.LatestMessage.IsZero() {
			msgIDs = append(msgIDs, ch.LatestMessage)
		}
	}

	latest := map[primitive.ObjectID]chatmodel.Message{}
	if len(msgIDs) > 0 {
		var msg chatmodel.Message
		cur, err := msg.Collection().Find(ctx, bson.M{"_id": bson.M{"$in": msgIDs}})
		if err != nil {
			return nil, errs.WrapMsg(err, "load latest messages")
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var m chatmodel.Message
			if err := cur.Decode(&m); err != nil {
				return nil, errs.WrapMsg(err, "decode message")
			}
			latest[m.ID] = m
			userIDs = append(userIDs, m.Sender)
		}
		if err := cur.Err(); err != nil {
			return nil, errs.Wrap(err)
		}
	}

	users, err := loadUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]chatmodel.ChatView, 0, len(chats))
	for _, ch := range chats {
		v := chatView(ch, users)
		if m, ok := latest[ch.LatestMessage]; ok {
			mv := messageView(m, users)
			v.LatestMessage = &mv
		}
		views = append(views, v)
	}
	return views, nil
}

func populateChat(ctx context.Context, ch *chatmodel.Chat) (*chatmodel.ChatView, error) {
	views, err := populateChats(ctx, []chatmodel.Chat{*ch}, false)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func chatView(ch chatmodel.Chat, users map[primitive.ObjectID]usermodel.Public) chatmodel.ChatView {
	v := chatmodel.ChatView{
		ID:          ch.ID,
		ChatName:    ch.ChatName,
		IsGroupChat: ch.IsGroupChat,
		Users:       make([]usermodel.Public, 0, len(ch.Users)),
		CreatedAt:   ch.CreatedAt,
		UpdatedAt:   ch.UpdatedAt,
	}
	for _, id := range ch.Users {
		if u, ok := users[id]; ok {
			v.Users = append(v.Users, u)
		}
	}
	if admin, ok := users[ch.GroupAdmin]; ok {
		v.GroupAdmin = &admin
	}
	return v
}

func messageView(m chatmodel.Message, users map[primitive.ObjectID]usermodel.Public) chatmodel.MessageView {
	v := chatmodel.MessageView{
		ID:        m.ID,
		Content:   m.Content,
		ReadBy:    make([]usermodel.Public, 0, len(m.ReadBy)),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if u, ok := users[m.Sender]; ok {
		v.Sender = u
	}
	for _, id := range m.ReadBy {
		if u, ok := users[id]; ok {
			v.ReadBy = append(v.ReadBy, u)
		}
	}
	return v
}
