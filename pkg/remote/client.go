package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/loom/pkg/chat"
)

// Client talks to the remote chat service. All endpoints return arrays of
// plain records; the client maps them into local entities and never hands out
// wire types.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout; a slow model response is not a
	// transport failure. Timeout policy for streams lives in the caller's
	// context.
	streamClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s failed", path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) sendJSON(ctx context.Context, method string, path string, in interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return errors.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	return nil
}

func (c *Client) ListChats(ctx context.Context) ([]*chat.Chat, error) {
	var records []chatRecord
	if err := c.getJSON(ctx, "/api/chats", &records); err != nil {
		return nil, err
	}

	out := make([]*chat.Chat, 0, len(records))
	for _, r := range records {
		entity, err := r.toEntity()
		if err != nil {
			log.Warn().Err(err).Str("chat_id", r.ID).Msg("skipping malformed remote chat")
			continue
		}
		out = append(out, entity)
	}
	return out, nil
}

func (c *Client) ListPersonas(ctx context.Context) ([]*chat.Persona, error) {
	var records []personaRecord
	if err := c.getJSON(ctx, "/api/personas", &records); err != nil {
		return nil, err
	}
	out := make([]*chat.Persona, 0, len(records))
	for _, r := range records {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (c *Client) CreatePersona(ctx context.Context, p *chat.Persona) error {
	return c.sendJSON(ctx, http.MethodPost, "/api/personas", personaToRecord(p))
}

func (c *Client) UpdatePersona(ctx context.Context, p *chat.Persona) error {
	return c.sendJSON(ctx, http.MethodPut, "/api/personas/"+url.PathEscape(p.ID), personaToRecord(p))
}

func (c *Client) DeletePersona(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/api/personas/"+url.PathEscape(id), nil)
}

func (c *Client) ListGroups(ctx context.Context) ([]*chat.Group, error) {
	var records []groupRecord
	if err := c.getJSON(ctx, "/api/groups", &records); err != nil {
		return nil, err
	}
	out := make([]*chat.Group, 0, len(records))
	for _, r := range records {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (c *Client) ListTags(ctx context.Context) ([]*chat.Tag, error) {
	var records []tagRecord
	if err := c.getJSON(ctx, "/api/tags", &records); err != nil {
		return nil, err
	}
	out := make([]*chat.Tag, 0, len(records))
	for _, r := range records {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (c *Client) ListDreams(ctx context.Context) ([]*chat.Dream, error) {
	var records []dreamRecord
	if err := c.getJSON(ctx, "/api/dreams", &records); err != nil {
		return nil, err
	}
	out := make([]*chat.Dream, 0, len(records))
	for _, r := range records {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (c *Client) ListJournal(ctx context.Context) ([]*chat.JournalEntry, error) {
	var records []journalRecord
	if err := c.getJSON(ctx, "/api/journal", &records); err != nil {
		return nil, err
	}
	out := make([]*chat.JournalEntry, 0, len(records))
	for _, r := range records {
		out = append(out, r.toEntity())
	}
	return out, nil
}

func (c *Client) SearchMessages(ctx context.Context, query string) ([]SearchResult, error) {
	var results []SearchResult
	path := "/api/search?q=" + url.QueryEscape(query)
	if err := c.getJSON(ctx, path, &results); err != nil {
		return nil, err
	}
	return results, nil
}

const (
	modelListAttempts     = 3
	modelListInitialDelay = 500 * time.Millisecond
)

// ListModels fetches the model catalog with a bounded retry. This is the only
// automatically retried call in the client; everything else surfaces its
// first failure.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var lastErr error
	delay := modelListInitialDelay

	for attempt := 1; attempt <= modelListAttempts; attempt++ {
		var models []ModelInfo
		err := c.getJSON(ctx, "/api/models", &models)
		if err == nil {
			return models, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("model list fetch failed")

		if attempt == modelListAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, errors.Wrapf(lastErr, "model list fetch failed after %d attempts", modelListAttempts)
}

// OpenStream posts a send request and returns the raw NDJSON response body.
// Callers normally go through StreamEvents instead.
func (c *Client) OpenStream(ctx context.Context, req SendRequest) (io.ReadCloser, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "could not open stream")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream request: unexpected status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
