// Package wordpress is the REST client for the connected site: core
// /wp-json/wp/v2 routes for posts and the companion plugin's
// /wp-json/toolscope/v1 routes for tool snippets. Authentication uses an
// application password over basic auth.
package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
	"github.com/wpembed/toolscope/internal/utils"
)

const (
	requestTimeout = 15 * time.Second
	postsPerPage   = 20
)

// Post is a blog post as the assistant sees it. Title and Content hold the
// rendered HTML straight from the REST API; scoring and generation strip it
// before prompting.
type Post struct {
	ID      int
	Title   string
	Content string
	Link    string

	// ToolID and ToolCreated come from the companion plugin's post meta;
	// zero values mean no tool is attached yet.
	ToolID      int
	ToolCreated string
}

// Tool is a stored snippet on the site.
type Tool struct {
	ID      int
	Title   string
	Created string
}

type Client struct {
	baseURL     string
	username    string
	appPassword string
	client      *retryablehttp.Client
}

func NewClient(baseURL, username, appPassword string) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = log.New(io.Discard, "", 0)
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = requestTimeout

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		username:    username,
		appPassword: appPassword,
		client:      rc,
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, http.Header, []byte, error) {
	var raw interface{}
	if payload != nil {
		raw = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, raw)
	if err != nil {
		return 0, nil, nil, err
	}
	req.SetBasicAuth(c.username, c.appPassword)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func restError(op string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = utils.TruncateRunes(strings.TrimSpace(string(body)), 200)
	}
	return fmt.Errorf("wordpress: %s: HTTP %d: %s", op, status, msg)
}

func postFromJSON(j gjson.Result) Post {
	return Post{
		ID:          int(j.Get("id").Int()),
		Title:       j.Get("title.rendered").String(),
		Content:     j.Get("content.rendered").String(),
		Link:        j.Get("link").String(),
		ToolID:      int(j.Get("meta.toolscope_tool_id").Int()),
		ToolCreated: j.Get("meta.toolscope_tool_created").String(),
	}
}

// FetchPosts returns one page of published posts plus the total page count
// reported by the X-WP-TotalPages header.
func (c *Client) FetchPosts(ctx context.Context, page int) ([]Post, int, error) {
	path := fmt.Sprintf("/wp-json/wp/v2/posts?page=%d&per_page=%d&status=publish", page, postsPerPage)
	status, header, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}
	if status != http.StatusOK {
		return nil, 0, restError("fetch posts", status, body)
	}

	totalPages, _ := strconv.Atoi(header.Get("X-WP-TotalPages"))
	if totalPages < 1 {
		totalPages = 1
	}

	var posts []Post
	gjson.ParseBytes(body).ForEach(func(_, j gjson.Result) bool {
		posts = append(posts, postFromJSON(j))
		return true
	})
	return posts, totalPages, nil
}

func (c *Client) GetPost(ctx context.Context, id int) (Post, error) {
	status, _, body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/wp-json/wp/v2/posts/%d", id), nil)
	if err != nil {
		return Post{}, err
	}
	if status != http.StatusOK {
		return Post{}, restError("get post", status, body)
	}
	return postFromJSON(gjson.ParseBytes(body)), nil
}

// UpdatePostBody replaces a post's content and returns the updated post.
func (c *Client) UpdatePostBody(ctx context.Context, id int, html string) (Post, error) {
	payload, err := json.Marshal(map[string]string{"content": html})
	if err != nil {
		return Post{}, err
	}
	status, _, body, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/wp-json/wp/v2/posts/%d", id), payload)
	if err != nil {
		return Post{}, err
	}
	if status != http.StatusOK {
		return Post{}, restError("update post", status, body)
	}
	return postFromJSON(gjson.ParseBytes(body)), nil
}

// CreateTool stores a snippet on the site and returns its id.
func (c *Client) CreateTool(ctx context.Context, title, html string) (int, error) {
	payload, err := json.Marshal(map[string]string{"title": title, "html": html})
	if err != nil {
		return 0, err
	}
	status, _, body, err := c.do(ctx, http.MethodPost, "/wp-json/toolscope/v1/tools", payload)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return 0, restError("create tool", status, body)
	}
	id := int(gjson.GetBytes(body, "id").Int())
	if id == 0 {
		return 0, fmt.Errorf("wordpress: create tool: response carried no id")
	}
	return id, nil
}

func (c *Client) UpdateTool(ctx context.Context, id int, title, html string) error {
	payload, err := json.Marshal(map[string]string{"title": title, "html": html})
	if err != nil {
		return err
	}
	status, _, body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/wp-json/toolscope/v1/tools/%d", id), payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return restError("update tool", status, body)
	}
	return nil
}

func (c *Client) DeleteTool(ctx context.Context, id int) error {
	status, _, body, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/wp-json/toolscope/v1/tools/%d", id), nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return restError("delete tool", status, body)
	}
	return nil
}

func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	status, _, body, err := c.do(ctx, http.MethodGet, "/wp-json/toolscope/v1/tools", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, restError("list tools", status, body)
	}

	var tools []Tool
	gjson.ParseBytes(body).ForEach(func(_, j gjson.Result) bool {
		tools = append(tools, Tool{
			ID:      int(j.Get("id").Int()),
			Title:   j.Get("title").String(),
			Created: j.Get("created").String(),
		})
		return true
	})
	return tools, nil
}

// CheckSetup reports whether the companion plugin's endpoint answers. Any
// failure collapses to false; this mirrors the key-validation contract.
func (c *Client) CheckSetup(ctx context.Context) bool {
	status, _, _, err := c.do(ctx, http.MethodGet, "/wp-json/toolscope/v1/status", nil)
	if err != nil {
		utils.Log.Debugf("wordpress: setup check failed: %v", err)
		return false
	}
	return status == http.StatusOK
}

// Shortcode renders the embed shortcode the companion plugin expands.
func Shortcode(toolID int) string {
	return fmt.Sprintf(`[toolscope id="%d"]`, toolID)
}

// EmbedShortcode appends a tool's shortcode to post content unless it is
// already present.
func EmbedShortcode(content string, toolID int) string {
	sc := Shortcode(toolID)
	if strings.Contains(content, sc) {
		return content
	}
	return strings.TrimRight(content, "\n") + "\n\n" + sc + "\n"
}
