package chat

import (
	"context"
	"net/http"

	midsec "chatserve/middleware/security"
	chatmodel "chatserve/module/chat/model"
	"chatserve/module/chat/service"
	"chatserve/tools/errs"
	"chatserve/tools/resp"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandlerAccessChat POST /chat/ — open (or create) the 1:1 chat with userId.
func HandlerAccessChat(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("userId param not sent with request"))
		return
	}
	otherID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("malformed userId"))
		return
	}

	self := midsec.CurrentUser(c)
	view, err := service.AccessChat(c.Request.Context(), self.ID, otherID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandlerFetchChats GET /chat/
func HandlerFetchChats(c *gin.Context) {
	self := midsec.CurrentUser(c)
	views, err := service.FetchChats(c.Request.Context(), self.ID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// HandlerCreateGroup POST /chat/group
func HandlerCreateGroup(c *gin.Context) {
	var req struct {
		Name  string   `json:"name" binding:"required"`
		Users []string `json:"users" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide group name and users"))
		return
	}
	members, err := parseIDs(req.Users)
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	view, err := service.CreateGroup(c.Request.Context(), self.ID, req.Name, members)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// HandlerRenameGroup PUT /chat/group/rename
func HandlerRenameGroup(c *gin.Context) {
	var req struct {
		ChatID   string `json:"chatId" binding:"required"`
		ChatName string `json:"chatName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide chatId and new name"))
		return
	}
	chatID, err := parseID(req.ChatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	view, err := service.RenameGroup(c.Request.Context(), self.ID, chatID, req.ChatName)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandlerAddToGroup PUT /chat/group/add
func HandlerAddToGroup(c *gin.Context) {
	handleMembership(c, service.AddToGroup)
}

// HandlerRemoveFromGroup PUT /chat/group/remove
func HandlerRemoveFromGroup(c *gin.Context) {
	handleMembership(c, service.RemoveFromGroup)
}

// HandlerLeaveGroup PUT /chat/group/leave
func HandlerLeaveGroup(c *gin.Context) {
	var req struct {
		ChatID string `json:"chatId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide chatId"))
		return
	}
	chatID, err := parseID(req.ChatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	view, err := service.LeaveGroup(c.Request.Context(), self.ID, chatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandlerDeleteGroup DELETE /chat/group/delete
func HandlerDeleteGroup(c *gin.Context) {
	var req struct {
		ChatID string `json:"chatId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide chatId"))
		return
	}
	chatID, err := parseID(req.ChatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	if err := service.DeleteGroup(c.Request.Context(), self.ID, chatID); err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "group deleted successfully"})
}

// HandlerListMessages GET /message/:chatId
func HandlerListMessages(c *gin.Context) {
	chatID, err := parseID(c.Param("chatId"))
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	views, err := service.ListMessages(c.Request.Context(), self.ID, chatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// HandlerSendMessage POST /message/
func HandlerSendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		ChatID  string `json:"chatId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("content and chatId are required"))
		return
	}
	chatID, err := parseID(req.ChatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	view, err := service.SendMessage(c.Request.Context(), self.ID, chatID, req.Content)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type membershipFn func(ctx context.Context, selfID, chatID, userID primitive.ObjectID) (*chatmodel.ChatView, error)

// handleMembership covers the add/remove routes, which share a request shape.
func handleMembership(c *gin.Context, fn membershipFn) {
	var req struct {
		ChatID string `json:"chatId" binding:"required"`
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide chatId and userId"))
		return
	}
	chatID, err := parseID(req.ChatID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	userID, err := parseID(req.UserID)
	if err != nil {
		resp.Fail(c, err)
		return
	}

	self := midsec.CurrentUser(c)
	view, err := fn(c.Request.Context(), self.ID, chatID, userID)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errs.ErrArgs.WrapMsg("malformed id", "id", hex)
	}
	return id, nil
}

func parseIDs(hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := parseID(h)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
