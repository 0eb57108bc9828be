package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// TokenVerifier resolves an access token to its account id.
type TokenVerifier interface {
	ValidateAccessToken(token string) (string, error)
}

// RegisterRoutes mounts the per-owner event socket. With a verifier the
// socket requires ?token= belonging to the owner in the path.
func RegisterRoutes(r fiber.Router, hub *Hub, verify TokenVerifier) {
	r.Get("/ws/:owner", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if verify != nil {
			userID, err := verify.ValidateAccessToken(c.Query("token"))
			if err != nil || userID != c.Params("owner") {
				return fiber.NewError(fiber.StatusUnauthorized, "invalid stream token")
			}
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("owner"))
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
