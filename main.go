package main

import (
	"context"
	"net/http"
	"time"

	"chatserve/global"
	"chatserve/logger"
	"chatserve/middleware"
	chathandler "chatserve/module/chat"
	chatservice "chatserve/module/chat/service"
	user "chatserve/module/user"
	wschat "chatserve/service/chat"
	"chatserve/service/mgo"
	"chatserve/service/storage"
	redisc "chatserve/service/storage/redis"
	"chatserve/tools/ids"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := global.Load()
	ids.SetNodeID(cfg.NodeID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mgo.Init(ctx, &mgo.Config{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
		Username: cfg.MongoUser,
		Password: cfg.MongoPassword,
	}); err != nil {
		logger.Errorf("[boot] mongo: %v", err)
		return
	}
	logger.Info("[boot] database connected")

	if err := mgo.EnsureIndexes(ctx); err != nil {
		// index creation failure is not fatal, matching prior behavior
		logger.Warnf("[boot] create indexes: %v", err)
	}

	// presence mirror is optional; the registry stays authoritative
	var presence wschat.PresenceMirror
	if err := redisc.Init(redisc.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Warnf("[boot] redis unavailable, presence mirror disabled: %v", err)
	} else {
		presence = storage.NewMirror()
	}

	relay := wschat.NewServer(wschat.Config{PingTimeout: cfg.PingTimeout}, chatservice.Store{}, presence)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "app is running...")
	})
	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, relay.Stats())
	})
	r.GET("/ws", relay.HandleWS)

	userGroup := r.Group("/user")
	middleware.POST(userGroup, "/login", user.HandlerLogin, middleware.RouteOpt{})
	middleware.POST(userGroup, "/register", user.HandlerRegister, middleware.RouteOpt{})
	middleware.GET(userGroup, "/", user.HandlerSearch, middleware.RouteOpt{IsAuth: true})

	chatGroup := r.Group("/chat")
	auth := middleware.RouteOpt{IsAuth: true}
	middleware.POST(chatGroup, "/", chathandler.HandlerAccessChat, auth)
	middleware.GET(chatGroup, "/", chathandler.HandlerFetchChats, auth)
	middleware.POST(chatGroup, "/group", chathandler.HandlerCreateGroup, auth)
	middleware.PUT(chatGroup, "/group/rename", chathandler.HandlerRenameGroup, auth)
	middleware.PUT(chatGroup, "/group/add", chathandler.HandlerAddToGroup, auth)
	middleware.PUT(chatGroup, "/group/remove", chathandler.HandlerRemoveFromGroup, auth)
	middleware.DELETE(chatGroup, "/group/delete", chathandler.HandlerDeleteGroup, auth)
	middleware.PUT(chatGroup, "/group/leave", chathandler.HandlerLeaveGroup, auth)

	msgGroup := r.Group("/message")
	middleware.GET(msgGroup, "/:chatId", chathandler.HandlerListMessages, auth)
	middleware.POST(msgGroup, "/", chathandler.HandlerSendMessage, auth)

	logger.Infof("[boot] listening on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Errorf("[boot] http server: %v", err)
	}
}
