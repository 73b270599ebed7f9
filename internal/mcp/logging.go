package mcp

import (
	"context"
	"encoding/json"
	"log"

	"github.com/athenahq/toolgate/internal/db"
	"github.com/athenahq/toolgate/internal/models"
)

// logRequest appends one audit record for an attempted tool invocation.
// Fire-and-forget: a write failure never blocks the response the caller is
// already owed.
func (s *Service) logRequest(ctx context.Context, userID, tool string, request, response map[string]any, elapsedMs int) {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		log.Printf("mcp: encode request payload for %s: %v", userID, err)
		reqJSON = []byte("{}")
	}
	respJSON, err := json.Marshal(response)
	if err != nil {
		log.Printf("mcp: encode response payload for %s: %v", userID, err)
		respJSON = []byte("{}")
	}

	ms := elapsedMs
	entry := &models.RequestLog{
		UserID:           userID,
		RequestPayload:   string(reqJSON),
		ResponsePayload:  string(respJSON),
		ProcessingTimeMs: &ms,
		ToolUsed:         tool,
	}
	if _, err := db.InsertRequestLog(ctx, s.db, entry); err != nil {
		log.Printf("mcp: request log write failed for %s: %v", userID, err)
	}
}
