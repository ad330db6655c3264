// Package anki talks to a running Anki desktop app through AnkiConnect and
// syncs stored vocabulary into decks.
package anki

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
)

// apiVersion is the AnkiConnect protocol version spoken by this client.
const apiVersion = 6

// Client is a minimal AnkiConnect client.
type Client struct {
	client *http.Client
	url    string
}

// NewClient returns a client for the AnkiConnect endpoint in cfg.
func NewClient(cfg config.AnkiConfig) *Client {
	return &Client{
		client: &http.Client{Timeout: cfg.Timeout},
		url:    cfg.URL,
	}
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// APIError is an error reported by AnkiConnect itself, such as a rejected
// duplicate note.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ankiconnect %s: %s", e.Action, e.Message)
}

func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ankiconnect %s: %v: %w", action, err, domain.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ankiconnect %s: status %d: %w", action, resp.StatusCode, domain.ErrServiceUnavailable)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}
	if r.Error != nil {
		return &APIError{Action: action, Message: *r.Error}
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", action, err)
	}
	return nil
}

// Version returns the AnkiConnect protocol version.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	err := c.invoke(ctx, "version", nil, &v)
	return v, err
}

// DeckNames lists the decks in the collection.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "deckNames", nil, &names)
	return names, err
}

// CreateDeck creates name. Existing decks are left alone.
func (c *Client) CreateDeck(ctx context.Context, name string) error {
	return c.invoke(ctx, "createDeck", map[string]any{"deck": name}, nil)
}

// ModelNames lists the note types in the collection.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "modelNames", nil, &names)
	return names, err
}

// CardTemplate is one card type of a note model.
type CardTemplate struct {
	Name  string `json:"Name"`
	Front string `json:"Front"`
	Back  string `json:"Back"`
}

// Model is a note type definition.
type Model struct {
	ModelName     string         `json:"modelName"`
	InOrderFields []string       `json:"inOrderFields"`
	CSS           string         `json:"css"`
	CardTemplates []CardTemplate `json:"cardTemplates"`
}

// CreateModel adds a note type.
func (c *Client) CreateModel(ctx context.Context, m Model) error {
	return c.invoke(ctx, "createModel", m, nil)
}

// FindNotes returns the ids of notes matching an Anki search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.invoke(ctx, "findNotes", map[string]any{"query": query}, &ids)
	return ids, err
}

// StoreMediaFile uploads a file into the collection's media folder.
func (c *Client) StoreMediaFile(ctx context.Context, filename string, data []byte) error {
	return c.invoke(ctx, "storeMediaFile", map[string]any{
		"filename": filename,
		"data":     base64.StdEncoding.EncodeToString(data),
	}, nil)
}

// NoteOptions controls duplicate handling on AddNote.
type NoteOptions struct {
	AllowDuplicate bool `json:"allowDuplicate"`
}

// Note is a note to add.
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   NoteOptions       `json:"options"`
	Tags      []string          `json:"tags"`
}

// AddNote creates a note and returns its id.
func (c *Client) AddNote(ctx context.Context, n Note) (int64, error) {
	var id int64
	err := c.invoke(ctx, "addNote", map[string]any{"note": n}, &id)
	return id, err
}
