package handlers

import (
	"log"
	"net/http"

	"github.com/collabrium-dev/collabrium/internal/apperr"
	"github.com/gin-gonic/gin"
)

// RespondError translates a classified error into the {status, message}
// envelope. 4xx responses report "fail", 5xx "error"; unexpected failures
// are logged and their details hidden from the caller in release mode.
func RespondError(ctx *gin.Context, err error) {
	status := apperr.Status(err)
	message := apperr.Message(err)

	envelope := "fail"

	if status >= http.StatusInternalServerError {
		envelope = "error"
		log.Printf("%s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)

		if gin.Mode() == gin.ReleaseMode {
			message = "Something went very wrong!"
		}
	}

	ctx.JSON(status, gin.H{"status": envelope, "message": message})
}

func RespondSuccess(ctx *gin.Context, status int, data gin.H) {
	ctx.JSON(status, gin.H{"status": "success", "data": data})
}
