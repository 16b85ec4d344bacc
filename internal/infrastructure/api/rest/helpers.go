package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// respondOK writes {success:true, ...data} — every field in data is
// merged into the top-level response object, matching the route
// table's flat JSON envelope.
func respondOK(c *gin.Context, status int, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["success"] = true
	c.JSON(status, data)
}

// respondErr writes {success:false, error:"..."} at status. The
// logging middleware already records the status and path; this only
// shapes the body the caller sees.
func respondErr(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func getQueryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getQueryBool(c *gin.Context, name string, fallback bool) bool {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
