// Package syncer reconciles the local note store against the remote folders
// API: a debounced per-item scheduler pushes local edits, and successful
// responses are folded back into the store.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/tree"
)

// RemoteClient is the remote collaborator contract. All calls carry the
// session credential implicitly; auth failures surface as plain call
// failures.
type RemoteClient interface {
	// FetchTree returns the full forest for the authenticated user.
	FetchTree(ctx context.Context) ([]*tree.Item, error)
	// CreateItem creates item on the server (under parentID when non-empty)
	// and returns it with the server-assigned ID.
	CreateItem(ctx context.Context, item *tree.Item, parentID string) (*tree.Item, error)
	// UpdateItem replaces the item's mutable fields and returns the updated
	// item.
	UpdateItem(ctx context.Context, id string, item *tree.Item) (*tree.Item, error)
	// DeleteItem removes the item (and subtree) from the server.
	DeleteItem(ctx context.Context, id string) error
}

// HTTPError is a non-2xx response from the folders API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// HTTPClient implements RemoteClient over the folders HTTP API with bounded
// retry on transient failures.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewHTTPClient creates a client for the folders API at baseURL.
func NewHTTPClient(baseURL, token string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPClient{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
		maxRetries: 3,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

type itemPayload struct {
	Type     tree.ItemType `json:"type,omitempty"`
	Name     string        `json:"name,omitempty"`
	Title    string        `json:"title,omitempty"`
	Content  string        `json:"content,omitempty"`
	ParentID string        `json:"parentId,omitempty"`
}

func payloadFor(item *tree.Item) itemPayload {
	p := itemPayload{Type: item.Type}
	if item.Type == tree.TypeFolder {
		p.Name = item.Name
	} else {
		p.Title = item.Title
		p.Content = item.Content
	}
	return p
}

// FetchTree retrieves the full forest (GET /folders).
func (c *HTTPClient) FetchTree(ctx context.Context) ([]*tree.Item, error) {
	var out struct {
		Folders []*tree.Item `json:"folders"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/folders", nil, &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

// CreateItem creates a new item (POST /folders).
func (c *HTTPClient) CreateItem(ctx context.Context, item *tree.Item, parentID string) (*tree.Item, error) {
	body := payloadFor(item)
	body.ParentID = parentID
	var out struct {
		Item *tree.Item `json:"item"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/folders", body, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// UpdateItem replaces an item's fields (PUT /folders/{id}).
func (c *HTTPClient) UpdateItem(ctx context.Context, id string, item *tree.Item) (*tree.Item, error) {
	body := payloadFor(item)
	body.Type = ""
	var out struct {
		Item *tree.Item `json:"item"`
	}
	if err := c.doJSON(ctx, http.MethodPut, "/folders/"+id, body, &out); err != nil {
		return nil, err
	}
	return out.Item, nil
}

// DeleteItem removes an item (DELETE /folders/{id}).
func (c *HTTPClient) DeleteItem(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/folders/"+id, nil, nil)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1)); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payload) == 0 {
				return nil
			}
			return json.Unmarshal(payload, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) && attempt < c.maxRetries {
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt + 1)); waitErr != nil {
				return waitErr
			}
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			return apperr.ErrNotFound
		}
		var errPayload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		msg := errPayload.Error
		if msg == "" {
			msg = errPayload.Message
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
}

func (c *HTTPClient) retryDelay(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
