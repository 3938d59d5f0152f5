package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/commonplate/backend/pkg/response"
)

const (
	// ContextParticipantID is the key for the participant id in gin context.
	ContextParticipantID = "participant_id"
	// ContextParticipantName is the key for the display name in gin context.
	ContextParticipantName = "participant_name"

	headerParticipantID   = "X-Participant-ID"
	headerParticipantName = "X-Participant-Name"
)

// Participant extracts the opaque participant identity from request headers
// and sets it in the gin context. Identity is client-assigned and stable for
// the session; there is no authentication layer on top of it.
func Participant() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerParticipantID)
		if id == "" {
			response.BadRequest(c, "missing "+headerParticipantID+" header")
			c.Abort()
			return
		}
		c.Set(ContextParticipantID, id)
		c.Set(ContextParticipantName, c.GetHeader(headerParticipantName))
		c.Next()
	}
}
