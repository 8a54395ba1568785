package common

import "github.com/gin-gonic/gin"

// Ok writes the standard success envelope used by the agent-facing API.
func Ok(c *gin.Context, data any) {
	c.JSON(200, gin.H{
		"code":    0,
		"message": "ok",
		"data":    data,
	})
}

// Fail writes the standard failure envelope. code is the application error
// code (distinct from the HTTP status).
func Fail(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    nil,
	})
}
