package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/athenahq/toolgate/internal/cache"
	"github.com/athenahq/toolgate/internal/config"
	"github.com/athenahq/toolgate/internal/convo"
	"github.com/athenahq/toolgate/internal/mcp"
	"github.com/athenahq/toolgate/internal/models"
	"github.com/athenahq/toolgate/internal/tools"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubInvoker struct{}

func (stubInvoker) Ask(ctx context.Context, prompt string, options map[string]any) (*tools.Result, error) {
	return &tools.Result{Response: "stub answer", Model: "Athena"}, nil
}

func (stubInvoker) Ingest(ctx context.Context, up tools.Upload) (*tools.Result, error) {
	return &tools.Result{Response: "stub ingest"}, nil
}

func (stubInvoker) GenerateDocs(ctx context.Context, projectPath, outputPath string) (*tools.Result, error) {
	return &tools.Result{Response: "stub docs"}, nil
}

// newTestRouter wires a real dispatcher over in-memory stores behind the
// gateway routes.
func newTestRouter(t *testing.T, production bool) (*gin.Engine, *gorm.DB, *cache.Memory) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.APIKey{}, &models.ContextLog{}, &models.RequestLog{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	mem := cache.NewMemory()

	manager, err := convo.NewManager(convo.ManagerOpts{DB: gdb, Cache: mem})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	svc, err := mcp.NewService(mcp.ServiceOpts{DB: gdb, Cache: mem, Convo: manager, Tools: stubInvoker{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, svc, production)
	return router, gdb, mem
}

func seedKey(t *testing.T, gdb *gorm.DB, key, userID string) {
	t.Helper()
	if err := gdb.Create(&models.APIKey{Key: key, UserID: userID}).Error; err != nil {
		t.Fatalf("seed key: %v", err)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, env
}

func TestHealthz(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestExecute_MissingHeaders(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodPost, "/mcp/execute",
		`{"tool":"Athena","params":{"prompt":"hi"}}`, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if env.Success {
		t.Error("success should be false")
	}
	if env.Code != "INVALID_PARAMS" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestExecute_BadJSON(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodPost, "/mcp/execute", `{not json`,
		map[string]string{"x-user-id": "u1", "x-api-key": "k"})

	if w.Code != http.StatusBadRequest || env.Code != "INVALID_PARAMS" {
		t.Errorf("status/code = %d/%q", w.Code, env.Code)
	}
}

func TestExecute_MissingTool(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodPost, "/mcp/execute", `{"params":{}}`,
		map[string]string{"x-user-id": "u1", "x-api-key": "k"})

	if w.Code != http.StatusBadRequest || env.Code != "INVALID_PARAMS" {
		t.Errorf("status/code = %d/%q", w.Code, env.Code)
	}
}

func TestExecute_InvalidKey(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodPost, "/mcp/execute",
		`{"tool":"Athena","params":{"prompt":"hi"}}`,
		map[string]string{"x-user-id": "u1", "x-api-key": "nope"})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if env.Code != "INVALID_CREDENTIAL" {
		t.Errorf("code = %q", env.Code)
	}
}

func TestExecute_Success(t *testing.T) {
	router, gdb, _ := newTestRouter(t, false)
	seedKey(t, gdb, "tg_key", "u1")

	w, env := doRequest(t, router, http.MethodPost, "/mcp/execute",
		`{"tool":"Athena","params":{"prompt":"hi"}}`,
		map[string]string{"x-user-id": "u1", "x-api-key": "tg_key"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if !env.Success {
		t.Error("success should be true")
	}

	var data struct {
		Status string `json:"status"`
		Data   struct {
			Response string `json:"response"`
			Model    string `json:"model"`
		} `json:"data"`
		ProcessedAt string `json:"processedAt"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Status != "success" || data.Data.Response != "stub answer" {
		t.Errorf("data = %+v", data)
	}
	if _, err := time.Parse(time.RFC3339, data.ProcessedAt); err != nil {
		t.Errorf("processedAt %q: %v", data.ProcessedAt, err)
	}
}

func TestStatus(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodGet, "/mcp/status", "", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v", w.Code, env.Success)
	}

	var data struct {
		Status      string `json:"status"`
		LastCommand string `json:"lastCommand"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Status != "running" || data.LastCommand != "none" {
		t.Errorf("data = %+v", data)
	}
}

func TestStatus_ProductionMasksStorageError(t *testing.T) {
	router, _, mem := newTestRouter(t, true)
	mem.FailGets = true
	mem.FailErr = errors.New("redis: connection refused")

	w, env := doRequest(t, router, http.MethodGet, "/mcp/status", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if env.Code != "STORAGE_FAILURE" {
		t.Errorf("code = %q", env.Code)
	}
	if env.Message != "Something went wrong." {
		t.Errorf("message = %q, want masked user message", env.Message)
	}
	if strings.Contains(env.Message, "redis") {
		t.Error("internal detail must not leak in production")
	}
}

func TestStatus_DevelopmentKeepsDetail(t *testing.T) {
	router, _, mem := newTestRouter(t, false)
	mem.FailGets = true
	mem.FailErr = errors.New("redis: connection refused")

	_, env := doRequest(t, router, http.MethodGet, "/mcp/status", "", nil)
	if !strings.Contains(env.Message, "last command") {
		t.Errorf("message = %q, want specific detail outside production", env.Message)
	}
}

func TestCommands(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodGet, "/mcp/commands", "", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v", w.Code, env.Success)
	}

	var commands []struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(env.Data, &commands); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(commands) != 2 {
		t.Errorf("commands = %d, want 2", len(commands))
	}
}

func TestShutdown(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	w, env := doRequest(t, router, http.MethodPost, "/mcp/shutdown", "", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("status = %d success = %v", w.Code, env.Success)
	}

	var data struct {
		Shutdown  bool  `json:"shutdown"`
		Timestamp int64 `json:"timestamp"`
	}
	json.Unmarshal(env.Data, &data)
	if !data.Shutdown || data.Timestamp == 0 {
		t.Errorf("data = %+v", data)
	}
}

func configRetention(schedule string, days int) config.RetentionConfig {
	return config.RetentionConfig{Schedule: schedule, Days: days}
}

func TestRetentionSweep_InvalidSchedule(t *testing.T) {
	// A bad schedule must not panic or spin; the sweep just declines to run.
	done := make(chan struct{})
	go func() {
		runRetentionSweep(context.Background(), nil, configRetention("not a cron expr", 30), nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep with invalid schedule should return immediately")
	}
}

func TestRetentionSweep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runRetentionSweep(ctx, nil, configRetention("0 3 * * *", 30), nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep should stop when the context is cancelled")
	}
}
