package mcp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/athenahq/toolgate/internal/apperr"
	"github.com/athenahq/toolgate/internal/cache"
	"github.com/athenahq/toolgate/internal/convo"
	"github.com/athenahq/toolgate/internal/db"
	"github.com/athenahq/toolgate/internal/tools"
)

// Request is one command invocation from an already-authenticated caller.
type Request struct {
	Tool   string
	Params map[string]any
	APIKey string
	UserID string
}

// Response is the uniform success envelope returned to the caller.
type Response struct {
	Status      string        `json:"status"`
	Data        *tools.Result `json:"data"`
	ProcessedAt string        `json:"processedAt"`
}

// Execute runs one command end to end: key validation, context handling,
// tool invocation, request logging, and best-effort usage increment.
//
// Validation failures stop the command before any side effect. Every
// invocation that reached the gateway call is request-logged, success or
// failure, before any later step can fail the command. Usage increments
// only after a successful gateway call. Request-log and usage-increment
// failures are swallowed with a diagnostic line.
func (s *Service) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.UserID == "" || req.APIKey == "" {
		return nil, apperr.InvalidParams("user id and api key are required")
	}

	if _, err := s.validateAPIKey(ctx, req.APIKey); err != nil {
		return nil, err
	}

	var (
		result *tools.Result
		err    error
	)
	switch req.Tool {
	case ToolMoad, aliasGenerateDocs:
		result, err = s.executeMoad(ctx, req)
	case ToolAthena, aliasAskAthena:
		result, err = s.executeAthena(ctx, req)
	default:
		return nil, apperr.InvalidParams(fmt.Sprintf("unknown tool: %s", req.Tool))
	}
	if err != nil {
		return nil, err
	}

	return &Response{
		Status:      "success",
		Data:        result,
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// executeMoad dispatches a documentation-generation call. Moad carries no
// conversational context.
func (s *Service) executeMoad(ctx context.Context, req Request) (*tools.Result, error) {
	projectPath := stringParam(req.Params, "projectPath")
	outputPath := stringParam(req.Params, "outputPath")
	if outputPath == "" {
		outputPath = stringParam(req.Params, "outputDir")
	}
	if projectPath == "" || outputPath == "" {
		return nil, apperr.InvalidParams("missing required params for Moad: projectPath, outputPath")
	}
	s.recordLastCommand(ctx, ToolMoad)

	start := time.Now()
	result, err := s.tools.GenerateDocs(ctx, projectPath, outputPath)
	elapsed := int(time.Since(start).Milliseconds())

	request := map[string]any{
		"api_key":     req.APIKey,
		"projectPath": projectPath,
		"outputPath":  outputPath,
	}
	if err != nil {
		s.logAttempt(ctx, req.UserID, ToolMoad, request, err, elapsed)
		return nil, err
	}
	s.logRequest(ctx, req.UserID, ToolMoad, request, map[string]any{"response": result.Response}, elapsed)
	s.incrementUsage(ctx, req.APIKey)
	return result, nil
}

// executeAthena dispatches either a Q&A query (with context merge) or a
// knowledge-base file ingest. The two parameter shapes are mutually
// exclusive.
func (s *Service) executeAthena(ctx context.Context, req Request) (*tools.Result, error) {
	prompt := stringParam(req.Params, "prompt")
	upload, hasUpload, err := uploadParam(req.Params)
	if err != nil {
		return nil, err
	}
	if prompt != "" && hasUpload {
		return nil, apperr.InvalidParams("prompt and upload are mutually exclusive for Athena")
	}
	if prompt == "" && !hasUpload {
		return nil, apperr.InvalidParams("missing prompt for Athena")
	}
	s.recordLastCommand(ctx, ToolAthena)

	if hasUpload {
		return s.executeIngest(ctx, req, upload)
	}

	// Prior context is best-effort: an unreadable context degrades to a
	// fresh conversation instead of failing the command.
	existing, err := s.convo.GetContext(ctx, req.UserID)
	if err != nil {
		log.Printf("mcp: context read for %s failed, proceeding without: %v", req.UserID, err)
		existing = ""
	}
	fullPrompt := prompt
	if existing != "" {
		fullPrompt = existing + "\n" + prompt
	}

	start := time.Now()
	result, err := s.tools.Ask(ctx, fullPrompt, mapParam(req.Params, "options"))
	elapsed := int(time.Since(start).Milliseconds())

	request := map[string]any{"api_key": req.APIKey, "prompt": prompt}
	if err != nil {
		s.logAttempt(ctx, req.UserID, ToolAthena, request, err, elapsed)
		return nil, err
	}

	// The gateway call succeeded, so the audit row and the usage count land
	// now; a context-save failure below still fails the command but cannot
	// erase the record of an invocation that happened.
	s.logRequest(ctx, req.UserID, ToolAthena, request, map[string]any{"response": result.Response}, elapsed)
	s.incrementUsage(ctx, req.APIKey)

	merged := convo.Merge(existing, prompt, result.Response)
	if _, err := s.convo.SaveContext(ctx, req.UserID, merged); err != nil {
		return nil, apperr.Storage("save context", err)
	}
	return result, nil
}

func (s *Service) executeIngest(ctx context.Context, req Request, up tools.Upload) (*tools.Result, error) {
	start := time.Now()
	result, err := s.tools.Ingest(ctx, up)
	elapsed := int(time.Since(start).Milliseconds())

	request := map[string]any{"api_key": req.APIKey, "filePath": up.FilePath}
	if err != nil {
		s.logAttempt(ctx, req.UserID, ToolAthena, request, err, elapsed)
		return nil, err
	}
	s.logRequest(ctx, req.UserID, ToolAthena, request, map[string]any{"response": result.Response}, elapsed)
	s.incrementUsage(ctx, req.APIKey)
	return result, nil
}

// recordLastCommand updates the operational last-command marker once the
// invocation has passed parameter validation. Best-effort.
func (s *Service) recordLastCommand(ctx context.Context, tool string) {
	if err := cache.SetLastCommand(ctx, s.cache, tool); err != nil {
		log.Printf("mcp: record last command failed: %v", err)
	}
}

// incrementUsage bumps the key's usage count after a successful invocation.
// Failures are swallowed: losing one count beats failing a request the user
// already got a correct answer for.
func (s *Service) incrementUsage(ctx context.Context, apiKey string) {
	if err := db.IncrementUsageCount(ctx, s.db, apiKey); err != nil {
		log.Printf("mcp: usage increment failed: %v", err)
	}
}

// logAttempt records a failed invocation, unless the failure was caller
// input that never produced a gateway call.
func (s *Service) logAttempt(ctx context.Context, userID, tool string, request map[string]any, invokeErr error, elapsedMs int) {
	if apperr.KindOf(invokeErr) == apperr.KindInvalidParams {
		return
	}
	s.logRequest(ctx, userID, tool, request, map[string]any{"error": invokeErr.Error()}, elapsedMs)
}
