package ws

import (
	"log"
	"net/http"
	"strings"

	"github.com/chisomudeze/marketa/services"
	"github.com/chisomudeze/marketa/services/jwt"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the HTTP connection to a websocket and binds an identity
// to it from a bearer token in the Authorization header, falling back to a
// token query parameter. Authentication is soft-fail: a missing or invalid
// token still gets a connection, just an anonymous one, and any action that
// needs an identity is rejected downstream.
func ServeWS(h *Hub, svc MessageSender, jwtSecret string, c *gin.Context) {
	var userID uint
	var email string

	if token := bearerToken(c); token != "" {
		claims, err := jwt.ValidateAndGetClaims(token, jwtSecret)
		if err != nil {
			log.Printf("ws handshake: invalid token, connection stays anonymous: %v", err)
		} else if id, err := jwt.UserIDFromClaims(claims); err != nil {
			log.Printf("ws handshake: bad id claim, connection stays anonymous: %v", err)
		} else {
			userID = id
			if e, ok := claims["email"].(string); ok {
				email = e
			}
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		svc:    svc,
		userID: userID,
		email:  email,
	}
	if userID != 0 {
		client.topic = services.UserTopic(userID)
	}

	h.RegisterClient(client)
	go client.Serve()
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
