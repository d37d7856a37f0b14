package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/manavgt54/idesync/internal/version"
)

func TestStatusHandler_Status(t *testing.T) {
	svc := newFakeService()
	handler := NewStatusHandler(svc, "/tmp/workspace")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v1/status", nil)

	handler.Status(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if resp.Version != version.Version {
		t.Errorf("expected version %s, got %s", version.Version, resp.Version)
	}
	if resp.Workspace != "/tmp/workspace" {
		t.Errorf("expected workspace /tmp/workspace, got %s", resp.Workspace)
	}
	if resp.SyncState != "idle" {
		t.Errorf("expected sync state idle, got %s", resp.SyncState)
	}
	if resp.Process == nil || resp.Process.PID == 0 {
		t.Errorf("expected process info for the current pid, got %+v", resp.Process)
	}
}
