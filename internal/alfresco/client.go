package alfresco

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// contextSegment is the repository context path Alfresco serves under.
const contextSegment = "alfresco"

const coreAPIPath = "/alfresco/api/-default-/public/alfresco/versions/1"

// Client is an HTTP client bound to one repository base URL and one auth
// descriptor. Instances are shared through the ClientCache; the token may be
// swapped in place on refresh without recreating the client.
type Client struct {
	hostRoot string // normalized base URL, no trailing slash or context segment
	rawBase  string // base URL as configured, trailing slash stripped

	mu   sync.RWMutex
	auth *AuthDescriptor

	httpc *http.Client
}

// NewClient builds a client for the given base URL. A nil descriptor yields
// an unauthenticated client.
func NewClient(baseURL string, auth *AuthDescriptor) *Client {
	return &Client{
		hostRoot: NormalizeBaseURL(baseURL),
		rawBase:  strings.TrimRight(baseURL, "/"),
		auth:     auth,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// HostRoot returns the normalized base URL the client is bound to.
func (c *Client) HostRoot() string {
	return c.hostRoot
}

// AuthDescriptor returns the descriptor the client authenticates with.
func (c *Client) AuthDescriptor() *AuthDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// SetBearerToken swaps the OAuth2 access token (and, when non-empty, refresh
// token) on the live client without invalidating in-flight state.
func (c *Client) SetBearerToken(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil || c.auth.Kind != AuthKindOAuth2 {
		return
	}
	c.auth.AccessToken = accessToken
	if refreshToken != "" {
		c.auth.RefreshToken = refreshToken
	}
}

// CoreAPI issues a request against the v1 core REST API
// ({host}/alfresco/api/-default-/public/alfresco/versions/1).
func (c *Client) CoreAPI(ctx context.Context, method, apiPath string, query url.Values, body any) (any, error) {
	return c.do(ctx, method, c.hostRoot+coreAPIPath+apiPath, query, body)
}

// SearchAPI issues a request against the public search API.
func (c *Client) SearchAPI(ctx context.Context, body any) (any, error) {
	return c.do(ctx, http.MethodPost, c.hostRoot+"/alfresco/api/-default-/public/search/versions/1/search", nil, body)
}

// ExecuteWebScript calls a repository webscript. The script path is relative
// to the service root ({context}/s). An empty contextRoot defaults to the
// repository context segment; a path already carrying the context prefix is
// folded into it.
func (c *Client) ExecuteWebScript(ctx context.Context, httpMethod, scriptPath string, scriptArgs map[string]any, contextRoot string) (any, error) {
	if contextRoot == "" {
		contextRoot = contextSegment
	}
	scriptPath = strings.TrimPrefix(scriptPath, contextRoot+"/")
	u := c.hostRoot + "/" + contextRoot + "/s/" + strings.TrimLeft(scriptPath, "/")

	httpMethod = strings.ToUpper(httpMethod)
	if httpMethod == http.MethodGet || httpMethod == http.MethodDelete {
		q := url.Values{}
		for k, v := range scriptArgs {
			q.Set(k, fmt.Sprint(v))
		}
		return c.do(ctx, httpMethod, u, q, nil)
	}
	return c.do(ctx, httpMethod, u, nil, scriptArgs)
}

func (c *Client) do(ctx context.Context, method, rawURL string, query url.Values, body any) (any, error) {
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyAuth(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(data)}
	}
	if len(data) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		// Webscripts may legitimately return non-JSON payloads (log files,
		// plain text status pages).
		return string(data), nil
	}
	return result, nil
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.auth == nil {
		return
	}
	switch c.auth.Kind {
	case AuthKindBasic:
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	case AuthKindOAuth2:
		if c.auth.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.auth.AccessToken)
		}
	}
}
