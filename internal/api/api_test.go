package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/testutil"
	"github.com/starford/laguz/internal/tree"
)

func newTestServer(t *testing.T, authEnabled bool, token string) *httptest.Server {
	t.Helper()
	svc := api.NewService(testutil.TestUserStore(t), nil)
	srv := httptest.NewServer(api.NewRouter(svc, nil, authEnabled, token))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func createItem(t *testing.T, srv *httptest.Server, body string) *tree.Item {
	t.Helper()
	resp, data := doRequest(t, srv, http.MethodPost, "/folders", "", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, data)
	}
	var out api.ItemResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	return out.Item
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, true, "secret")

	resp, _ := doRequest(t, srv, http.MethodGet, "/folders", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doRequest(t, srv, http.MethodGet, "/folders", "wrong", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doRequest(t, srv, http.MethodGet, "/folders", "secret", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", resp.StatusCode)
	}
}

func TestGetForestEmpty(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp, data := doRequest(t, srv, http.MethodGet, "/folders", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out api.ForestResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Folders == nil || len(out.Folders) != 0 {
		t.Errorf("folders = %v, want empty non-nil", out.Folders)
	}
}

func TestCreateFolderDefaults(t *testing.T) {
	srv := newTestServer(t, false, "")

	item := createItem(t, srv, `{"type":"folder"}`)
	if item.Name != "New Folder" {
		t.Errorf("name = %q, want New Folder", item.Name)
	}
	if !strings.HasPrefix(item.ID, "folder_") {
		t.Errorf("id = %q, want folder_ prefix", item.ID)
	}
	if item.IsLocal {
		t.Error("server item marked local")
	}
	if item.CreatedAt == 0 {
		t.Error("createdAt not set")
	}
}

func TestCreateNoteDefaults(t *testing.T) {
	srv := newTestServer(t, false, "")

	item := createItem(t, srv, `{"type":"note"}`)
	if item.Title != "Untitled" || item.Content != "" {
		t.Errorf("note = %+v, want Untitled/empty", item)
	}
	if !strings.HasPrefix(item.ID, "note_") {
		t.Errorf("id = %q, want note_ prefix", item.ID)
	}
}

func TestCreateNested(t *testing.T) {
	srv := newTestServer(t, false, "")

	folder := createItem(t, srv, `{"type":"folder","name":"Work"}`)
	note := createItem(t, srv, `{"type":"note","title":"Plan","parentId":"`+folder.ID+`"}`)

	resp, data := doRequest(t, srv, http.MethodGet, "/folders", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out api.ForestResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Folders) != 1 {
		t.Fatalf("roots = %d, want 1", len(out.Folders))
	}
	children := out.Folders[0].Children
	if len(children) != 1 || children[0].ID != note.ID {
		t.Errorf("children = %+v", children)
	}
}

func TestCreateParentNotFound(t *testing.T) {
	srv := newTestServer(t, false, "")

	resp, data := doRequest(t, srv, http.MethodPost, "/folders", "", `{"type":"note","parentId":"missing"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(string(data), "parent folder not found") {
		t.Errorf("body = %s", data)
	}
}

func TestCreateValidation(t *testing.T) {
	srv := newTestServer(t, false, "")

	for name, body := range map[string]string{
		"missing type": `{"name":"x"}`,
		"bad type":     `{"type":"notebook"}`,
		"bad json":     `{{{`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, _ := doRequest(t, srv, http.MethodPost, "/folders", "", body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestUpdateNote(t *testing.T) {
	srv := newTestServer(t, false, "")
	note := createItem(t, srv, `{"type":"note","title":"Plan"}`)

	resp, data := doRequest(t, srv, http.MethodPut, "/folders/"+note.ID, "", `{"content":"new body"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var out api.ItemResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Item.Content != "new body" {
		t.Errorf("content = %q", out.Item.Content)
	}
	if out.Item.Title != "Plan" {
		t.Errorf("title = %q, partial update must keep untouched fields", out.Item.Title)
	}
	if out.Item.LastUpdate < note.LastUpdate {
		t.Error("lastUpdate went backwards")
	}
}

func TestUpdateFolderName(t *testing.T) {
	srv := newTestServer(t, false, "")
	folder := createItem(t, srv, `{"type":"folder"}`)

	resp, data := doRequest(t, srv, http.MethodPut, "/folders/"+folder.ID, "", `{"name":"Renamed"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out api.ItemResponse
	_ = json.Unmarshal(data, &out)
	if out.Item.Name != "Renamed" {
		t.Errorf("name = %q", out.Item.Name)
	}
}

func TestUpdateNotFound(t *testing.T) {
	srv := newTestServer(t, false, "")
	resp, data := doRequest(t, srv, http.MethodPut, "/folders/missing", "", `{"title":"x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(string(data), "item not found") {
		t.Errorf("body = %s", data)
	}
}

func TestDeleteSubtree(t *testing.T) {
	srv := newTestServer(t, false, "")
	folder := createItem(t, srv, `{"type":"folder"}`)
	note := createItem(t, srv, `{"type":"note","parentId":"`+folder.ID+`"}`)

	resp, data := doRequest(t, srv, http.MethodDelete, "/folders/"+folder.ID, "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out api.MessageResponse
	_ = json.Unmarshal(data, &out)
	if out.Message != "Item deleted successfully" {
		t.Errorf("message = %q", out.Message)
	}

	// The whole subtree is gone; deleting the note again yields 404.
	resp, _ = doRequest(t, srv, http.MethodDelete, "/folders/"+note.ID, "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete of removed child status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteNotFound(t *testing.T) {
	srv := newTestServer(t, false, "")
	resp, _ := doRequest(t, srv, http.MethodDelete, "/folders/missing", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
