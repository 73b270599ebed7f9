package server

import (
	"log"
	"net/http"

	"github.com/athenahq/toolgate/internal/apperr"
	"github.com/athenahq/toolgate/internal/mcp"
	"github.com/gin-gonic/gin"
)

// executeBody is the request body for POST /mcp/execute.
type executeBody struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// registerRoutes sets up all gateway routes on the gin router.
func registerRoutes(router *gin.Engine, svc *mcp.Service, production bool) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/mcp/execute", handleExecute(svc, production))
	router.GET("/mcp/status", handleStatus(svc, production))
	router.GET("/mcp/commands", handleCommands(svc))
	router.POST("/mcp/shutdown", handleShutdown(svc, production))
}

func handleExecute(svc *mcp.Service, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("x-user-id")
		apiKey := c.GetHeader("x-api-key")
		if userID == "" || apiKey == "" {
			respondError(c, production, apperr.InvalidParams("user id and api key headers are required"))
			return
		}

		var body executeBody
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, production, apperr.InvalidParams("request body must be valid JSON"))
			return
		}
		if body.Tool == "" {
			respondError(c, production, apperr.InvalidParams("tool must be a non-empty string"))
			return
		}

		resp, err := svc.Execute(c.Request.Context(), mcp.Request{
			Tool:   body.Tool,
			Params: body.Params,
			APIKey: apiKey,
			UserID: userID,
		})
		if err != nil {
			respondError(c, production, err)
			return
		}
		respondOK(c, "MCP command executed successfully.", resp)
	}
}

func handleStatus(svc *mcp.Service, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.GetStatus(c.Request.Context())
		if err != nil {
			respondError(c, production, err)
			return
		}
		respondOK(c, "MCP status retrieved successfully.", status)
	}
}

func handleCommands(svc *mcp.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondOK(c, "MCP commands listed successfully.", svc.ListCommands())
	}
}

func handleShutdown(svc *mcp.Service, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.Shutdown(c.Request.Context())
		if err != nil {
			respondError(c, production, err)
			return
		}
		respondOK(c, "MCP shutdown completed successfully.", result)
	}
}

func respondOK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// respondError maps a classified error to the stable failure shape. In
// production mode, reportable (infrastructure) errors expose only their
// user message; caller-input errors keep their specific message either way.
func respondError(c *gin.Context, production bool, err error) {
	ae := apperr.From(err)
	if ae.Reportable {
		log.Printf("server: %s %s failed: %v", c.Request.Method, c.Request.URL.Path, ae)
	}

	message := ae.Message
	if production && ae.Reportable {
		message = ae.UserMessage
	}
	c.JSON(ae.Status, gin.H{
		"success": false,
		"message": message,
		"code":    string(ae.Kind),
	})
}
