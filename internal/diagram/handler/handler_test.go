package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drawhub/drawhub/backend/go-services/internal/access"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/repository"
	"github.com/drawhub/drawhub/backend/go-services/internal/diagram/service"
	"github.com/drawhub/drawhub/backend/go-services/internal/locks"
	"github.com/drawhub/drawhub/backend/go-services/internal/share"
	"github.com/gin-gonic/gin"
	"github.com/drawhub/drawhub/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
)

// allUsers accepts any grantee id, keeping the HTTP tests focused on the
// routing and status mapping.
type allUsers struct{}

func (allUsers) Exists(ctx context.Context, sub string) (bool, error) { return sub != "ghost", nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := repository.NewMemoryRepo()
	shareRepo := share.NewMemoryRepository()
	eval := access.NewEvaluator(shareRepo)
	svc := service.New(repo, shareRepo, eval, locks.NewKeyed(time.Second), nil)
	shareSvc := share.NewService(repo, shareRepo, eval, allUsers{})

	r := gin.New()
	r.Use(middleware.ActorFromHeader())
	RegisterDiagramRoutes(r, svc, shareSvc)
	return r
}

func do(t *testing.T, r *gin.Engine, actor, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Actor", actor)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createDiagram(t *testing.T, r *gin.Engine, actor string) string {
	t.Helper()
	w := do(t, r, actor, http.MethodPost, "/api/diagrams", gin.H{"name": "flow", "payload": json.RawMessage(`{"n":1}`)})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestCreateAndGetDiagram(t *testing.T) {
	r := newTestRouter(t)
	id := createDiagram(t, r, "alice")

	w := do(t, r, "alice", http.MethodGet, "/api/diagrams/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "alice", got["ownerId"])
	require.Equal(t, float64(1), got["version"])
	require.Equal(t, false, got["shared"])

	// a stranger gets 403, a missing id 404
	require.Equal(t, http.StatusForbidden, do(t, r, "mallory", http.MethodGet, "/api/diagrams/"+id, nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, r, "alice", http.MethodGet, "/api/diagrams/dgm_missing", nil).Code)
}

func TestSaveCommitAndConflict(t *testing.T) {
	r := newTestRouter(t)
	id := createDiagram(t, r, "alice")

	// share edit access with bob
	w := do(t, r, "alice", http.MethodPost, "/api/diagrams/"+id+"/shares", gin.H{"granteeId": "bob", "level": "editor"})
	require.Equal(t, http.StatusCreated, w.Code)

	// bob commits against version 1
	w = do(t, r, "bob", http.MethodPut, "/api/diagrams/"+id, gin.H{"expectedVersion": 1, "payload": json.RawMessage(`{"n":2}`)})
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Committed bool  `json:"committed"`
		Version   int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	require.True(t, ok.Committed)
	require.Equal(t, int64(2), ok.Version)

	// alice's stale save returns 409 with the stored state inline
	w = do(t, r, "alice", http.MethodPut, "/api/diagrams/"+id, gin.H{"expectedVersion": 1, "payload": json.RawMessage(`{"n":99}`)})
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict struct {
		Error    string `json:"error"`
		Conflict struct {
			Version        int64           `json:"version"`
			Payload        json.RawMessage `json:"payload"`
			LastModifiedBy string          `json:"lastModifiedBy"`
		} `json:"conflict"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	require.Equal(t, int64(2), conflict.Conflict.Version)
	require.JSONEq(t, `{"n":2}`, string(conflict.Conflict.Payload))
	require.Equal(t, "bob", conflict.Conflict.LastModifiedBy)
}

func TestSaveValidation(t *testing.T) {
	r := newTestRouter(t)
	id := createDiagram(t, r, "alice")

	// expectedVersion is mandatory
	w := do(t, r, "alice", http.MethodPut, "/api/diagrams/"+id, gin.H{"payload": json.RawMessage(`{}`)})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// viewers may not save
	require.Equal(t, http.StatusCreated, do(t, r, "alice", http.MethodPost, "/api/diagrams/"+id+"/shares", gin.H{"granteeId": "carol", "level": "viewer"}).Code)
	w = do(t, r, "carol", http.MethodPut, "/api/diagrams/"+id, gin.H{"expectedVersion": 1, "payload": json.RawMessage(`{}`)})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestVersionProbe(t *testing.T) {
	r := newTestRouter(t)
	id := createDiagram(t, r, "alice")

	w := do(t, r, "alice", http.MethodGet, "/api/diagrams/"+id+"/version", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, float64(1), got["version"])
	require.NotContains(t, got, "payload")

	require.Equal(t, http.StatusForbidden, do(t, r, "mallory", http.MethodGet, "/api/diagrams/"+id+"/version", nil).Code)
}

func TestShareLifecycle(t *testing.T) {
	r := newTestRouter(t)
	id := createDiagram(t, r, "alice")

	// grant, duplicate grant, unknown grantee
	require.Equal(t, http.StatusCreated, do(t, r, "alice", http.MethodPost, "/api/diagrams/"+id+"/shares", gin.H{"granteeId": "bob", "level": "viewer"}).Code)
	require.Equal(t, http.StatusConflict, do(t, r, "alice", http.MethodPost, "/api/diagrams/"+id+"/shares", gin.H{"granteeId": "bob", "level": "editor"}).Code)
	require.Equal(t, http.StatusNotFound, do(t, r, "alice", http.MethodPost, "/api/diagrams/"+id+"/shares", gin.H{"granteeId": "ghost", "level": "viewer"}).Code)

	// level change through the update route
	require.Equal(t, http.StatusOK, do(t, r, "alice", http.MethodPut, "/api/diagrams/"+id+"/shares/bob", gin.H{"level": "editor"}).Code)

	// listing requires manage-shares; bob is only an editor
	require.Equal(t, http.StatusForbidden, do(t, r, "bob", http.MethodGet, "/api/diagrams/"+id+"/shares", nil).Code)
	w := do(t, r, "alice", http.MethodGet, "/api/diagrams/"+id+"/shares", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "bob", entries[0]["granteeId"])
	require.Equal(t, "editor", entries[0]["level"])

	// bob sees the diagram under /shared with the granted level
	w = do(t, r, "bob", http.MethodGet, "/api/diagrams/shared", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sharedList []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sharedList))
	require.Len(t, sharedList, 1)
	require.Equal(t, id, sharedList[0]["id"])
	require.Equal(t, "editor", sharedList[0]["level"])

	// revoke and bob loses access
	require.Equal(t, http.StatusNoContent, do(t, r, "alice", http.MethodDelete, "/api/diagrams/"+id+"/shares/bob", nil).Code)
	require.Equal(t, http.StatusForbidden, do(t, r, "bob", http.MethodGet, "/api/diagrams/"+id, nil).Code)
}

func TestDeleteCascades(t *testing.T) {
	r := newTestRouter(t)
	id := createDiagram(t, r, "alice")
	require.Equal(t, http.StatusCreated, do(t, r, "alice", http.MethodPost, "/api/diagrams/"+id+"/shares", gin.H{"granteeId": "bob", "level": "owner"}).Code)

	// owner-level grantee manages shares but cannot delete
	require.Equal(t, http.StatusForbidden, do(t, r, "bob", http.MethodDelete, "/api/diagrams/"+id, nil).Code)

	require.Equal(t, http.StatusNoContent, do(t, r, "alice", http.MethodDelete, "/api/diagrams/"+id, nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, r, "alice", http.MethodGet, "/api/diagrams/"+id, nil).Code)

	// the cascade pruned bob's entry
	w := do(t, r, "bob", http.MethodGet, "/api/diagrams/shared", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sharedList []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sharedList))
	require.Empty(t, sharedList)
}

func TestListOwned(t *testing.T) {
	r := newTestRouter(t)
	for i := 0; i < 3; i++ {
		w := do(t, r, "alice", http.MethodPost, "/api/diagrams", gin.H{"name": fmt.Sprintf("d%d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	createDiagram(t, r, "bob")

	w := do(t, r, "alice", http.MethodGet, "/api/diagrams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
}
