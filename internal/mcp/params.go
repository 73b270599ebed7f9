package mcp

import (
	"github.com/athenahq/toolgate/internal/apperr"
	"github.com/athenahq/toolgate/internal/tools"
)

// stringParam returns params[key] when it is a string, else empty.
func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// mapParam returns params[key] when it is an object, else nil.
func mapParam(params map[string]any, key string) map[string]any {
	if v, ok := params[key].(map[string]any); ok {
		return v
	}
	return nil
}

// uploadParam parses the optional upload descriptor from params.
func uploadParam(params map[string]any) (tools.Upload, bool, error) {
	raw, present := params["upload"]
	if !present {
		return tools.Upload{}, false, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return tools.Upload{}, false, apperr.InvalidParams("upload must be an object")
	}

	up := tools.Upload{
		FilePath:    stringParam(m, "filePath"),
		SourceType:  stringParam(m, "sourceType"),
		Title:       stringParam(m, "title"),
		Description: stringParam(m, "description"),
	}
	if tags, ok := m["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				up.Tags = append(up.Tags, s)
			}
		}
	}
	if up.FilePath == "" {
		return tools.Upload{}, false, apperr.InvalidParams("upload.filePath is required")
	}
	return up, true, nil
}
