package user

import (
	"net/http"

	midsec "chatserve/middleware/security"
	"chatserve/module/user/service"
	"chatserve/tools/errs"
	"chatserve/tools/resp"

	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HandlerRegister POST /user/register
func HandlerRegister(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide username, email and password"))
		return
	}
	res, err := service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": res})
}

// HandlerLogin POST /user/login
func HandlerLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("provide both username and password"))
		return
	}
	res, err := service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

// HandlerSearch GET /user/?search=
func HandlerSearch(c *gin.Context) {
	self := midsec.CurrentUser(c)
	users, err := service.Search(c.Request.Context(), self.ID, c.Query("search"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}
