package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"chatserve/global"
	"chatserve/logger"
	usermodel "chatserve/module/user/model"
	"chatserve/tools/errs"
	jwtlib "chatserve/tools/security"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var emailRe = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// AuthResult is the response body for register and login.
type AuthResult struct {
	ID       primitive.ObjectID `json:"_id"`
	Username string             `json:"username"`
	Email    string             `json:"email"`
	Token    string             `json:"token"`
}

// Register validates and creates an account, then issues a token.
func Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 || len(username) > 30 {
		return nil, errs.ErrArgs.WrapMsg("username must be 3-30 characters")
	}
	if !emailRe.MatchString(email) {
		return nil, errs.ErrArgs.WrapMsg("invalid email address")
	}
	if len(password) < 6 {
		return nil, errs.ErrArgs.WrapMsg("password must be at least 6 characters")
	}

	var user usermodel.User
	coll := user.Collection()

	var existing usermodel.User
	err := coll.FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}).Decode(&existing)
	if err == nil {
		if existing.Email == email {
			return nil, errs.ErrDuplicateValue.WrapMsg("email already registered")
		}
		return nil, errs.ErrDuplicateValue.WrapMsg("username already taken")
	}
	if err != mongo.ErrNoDocuments {
		return nil, errs.WrapMsg(err, "lookup existing user")
	}

	hash, err := jwtlib.HashPassword(password)
	if err != nil {
		return nil, errs.WrapMsg(err, "hash password")
	}

	now := time.Now()
	user = usermodel.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := coll.InsertOne(ctx, &user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errs.ErrDuplicateValue.WrapMsg("username or email already taken")
		}
		return nil, errs.WrapMsg(err, "insert user")
	}
	user.ID = res.InsertedID.(primitive.ObjectID)

	return issueToken(ctx, &user)
}

// Login authenticates by username or email.
func Login(ctx context.Context, usernameOrEmail, password string) (*AuthResult, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" || password == "" {
		return nil, errs.ErrArgs.WrapMsg("provide both username and password")
	}

	var user usermodel.User
	err := user.Collection().FindOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": usernameOrEmail},
		bson.M{"email": strings.ToLower(usernameOrEmail)},
	}}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrBadCredentials.Wrap()
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "lookup user")
	}

	if !jwtlib.CheckPassword(user.Password, password) {
		return nil, errs.ErrBadCredentials.Wrap()
	}

	return issueToken(ctx, &user)
}

// issueToken signs a JWT and records the session with the token hash.
func issueToken(ctx context.Context, user *usermodel.User) (*AuthResult, error) {
	token, hash, exp, err := jwtlib.Generate(jwtlib.DefaultOptions(global.JWTSecret()), user.ID.Hex())
	if err != nil {
		return nil, errs.WrapMsg(err, "sign token")
	}

	sess := usermodel.UserSession{
		SessionID: uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hash,
		LoginTime: time.Now(),
		ExpireAt:  exp,
	}
	if _, err := sess.Collection().InsertOne(ctx, &sess); err != nil {
		// session bookkeeping must not block login
		logger.Warnf("[user] record session failed user=%s err=%v", user.ID.Hex(), err)
	}

	return &AuthResult{ID: user.ID, Username: user.Username, Email: user.Email, Token: token}, nil
}

// Search returns users matching the keyword on username or email
// (case-insensitive), excluding the caller. Empty keyword returns everyone
// else.
func Search(ctx context.Context, selfID primitive.ObjectID, keyword string) ([]usermodel.Public, error) {
	filter := bson.M{"_id": bson.M{"$ne": selfID}}
	if keyword != "" {
		quoted := regexp.QuoteMeta(keyword)
		filter["$or"] = bson.A{
			bson.M{"username": bson.M{"$regex": quoted, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": quoted, "$options": "i"}},
		}
	}

	var user usermodel.User
	cur, err := user.Collection().Find(ctx, filter)
	if err != nil {
		return nil, errs.WrapMsg(err, "search users")
	}
	defer cur.Close(ctx)

	out := []usermodel.Public{}
	for cur.Next(ctx) {
		var u usermodel.User
		if err := cur.Decode(&u); err != nil {
			return nil, errs.WrapMsg(err, "decode user")
		}
		out = append(out, u.Public())
	}
	return out, errs.Wrap(cur.Err())
}
