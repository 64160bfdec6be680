// Package handlers contains HTTP request handlers for the GreenCoach service.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GreetingMessage is the fixed body served by GreetingHandler
const GreetingMessage = "Hello from GreenCoach backend!"

// GreetingHandler answers the connectivity probe used by the app.
// It reads nothing from the request and always succeeds.
// GET /api/hello
func GreetingHandler(c *gin.Context) {
	c.String(http.StatusOK, GreetingMessage)
}
