package server

import (
	"fmt"
	"os"
	"time"

	"github.com/chisomudeze/marketa/ws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	apirouter := router.Group("/api/v1")
	apirouter.POST("/auth/signup", s.handleSignup())
	apirouter.POST("/auth/login", s.handleLogin())

	// The websocket handshake authenticates itself (soft-fail), so the
	// endpoint sits outside the Authorize group on purpose.
	apirouter.GET("/ws", func(c *gin.Context) {
		ws.ServeWS(s.Hub, s.MessageService, s.Config.JWTSecret, c)
	})

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/conversations", s.handleListConversations())
	authorized.GET("/conversations/initiate", s.handleInitiateConversation())
	authorized.GET("/conversations/messages", s.handleGetConversationMessages())
	authorized.GET("/items/:itemID/messages", s.handleGetItemMessages())
	authorized.PUT("/messages/read", s.handleMarkMessagesRead())
	authorized.POST("/messages", s.handleSendMessage())
}
