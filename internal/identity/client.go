// Package identity bridges human-entered handles to the external identity
// provider: stable numeric ids, display attributes, and group metadata.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the provider knows no identity or group
	// for the given input. Callers must map it to the same user-facing
	// failure as a bad credential so handle existence never leaks.
	ErrNotFound = errors.New("identity: not found")

	// ErrUnavailable is returned when the provider cannot be reached or
	// answers with a server error.
	ErrUnavailable = errors.New("identity: provider unavailable")
)

const (
	defaultUsersBaseURL      = "https://users.roblox.com"
	defaultThumbnailsBaseURL = "https://thumbnails.roblox.com"
	defaultGroupsBaseURL     = "https://groups.roblox.com"

	defaultTimeout = 10 * time.Second
)

// Attributes are the display fields used to hydrate an authenticated
// identity. Any of them may be empty when the provider partially fails.
type Attributes struct {
	Username    string
	DisplayName string
	AvatarURL   string
}

// Group carries the display metadata of an external group.
type Group struct {
	Name    string
	LogoURL string
}

// GroupRole is one rank tier of an external group.
type GroupRole struct {
	Name string
	Rank int
}

// Provider is the surface the rest of the service consumes. Implemented by
// Client; test doubles implement it directly.
type Provider interface {
	ResolveHandle(ctx context.Context, handle string) (int64, error)
	DisplayAttributes(ctx context.Context, userID int64) (Attributes, error)
	GroupInfo(ctx context.Context, groupID int64) (Group, error)
	GroupRole(ctx context.Context, groupID int64, roleName string) (GroupRole, error)
}

// Client talks to the provider's public HTTP APIs with bounded timeouts so a
// slow upstream fails the enclosing operation instead of hanging it.
type Client struct {
	httpClient    *http.Client
	usersBase     string
	thumbnailBase string
	groupsBase    string
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURLs overrides the provider endpoints. Empty values keep defaults.
func WithBaseURLs(users, thumbnails, groups string) Option {
	return func(c *Client) {
		if users != "" {
			c.usersBase = strings.TrimRight(users, "/")
		}
		if thumbnails != "" {
			c.thumbnailBase = strings.TrimRight(thumbnails, "/")
		}
		if groups != "" {
			c.groupsBase = strings.TrimRight(groups, "/")
		}
	}
}

// NewClient constructs a Client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		usersBase:     defaultUsersBaseURL,
		thumbnailBase: defaultThumbnailsBaseURL,
		groupsBase:    defaultGroupsBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Provider = (*Client)(nil)

// ResolveHandle maps a username to its numeric id. Unknown handles and
// provider errors both surface as ErrNotFound to the login flow.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return 0, ErrNotFound
	}
	payload := map[string]any{
		"usernames":          []string{handle},
		"excludeBannedUsers": true,
	}
	var resp struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, c.usersBase+"/v1/usernames/users", payload, &resp); err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 || resp.Data[0].ID <= 0 {
		return 0, ErrNotFound
	}
	return resp.Data[0].ID, nil
}

// DisplayAttributes fetches username, display name, and avatar thumbnail for
// a resolved identity. The avatar lookup is best-effort: a thumbnail failure
// returns the name fields with an empty AvatarURL rather than an error.
func (c *Client) DisplayAttributes(ctx context.Context, userID int64) (Attributes, error) {
	var user struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	}
	url := fmt.Sprintf("%s/v1/users/%d", c.usersBase, userID)
	if err := c.getJSON(ctx, url, &user); err != nil {
		return Attributes{}, err
	}
	attrs := Attributes{Username: user.Name, DisplayName: user.DisplayName}
	if avatar, err := c.avatarThumbnail(ctx, userID); err == nil {
		attrs.AvatarURL = avatar
	}
	return attrs, nil
}

// GroupInfo fetches the name and logo of a group.
func (c *Client) GroupInfo(ctx context.Context, groupID int64) (Group, error) {
	var group struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/groups/%d", c.groupsBase, groupID), &group); err != nil {
		return Group{}, err
	}
	out := Group{Name: group.Name}

	var logos struct {
		Data []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}
	logoURL := fmt.Sprintf("%s/v1/groups/icons?groupIds=%d&size=150x150&format=Png", c.thumbnailBase, groupID)
	if err := c.getJSON(ctx, logoURL, &logos); err == nil && len(logos.Data) > 0 {
		out.LogoURL = logos.Data[0].ImageURL
	}
	return out, nil
}

// GroupRole finds a group's rank tier by name.
func (c *Client) GroupRole(ctx context.Context, groupID int64, roleName string) (GroupRole, error) {
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return GroupRole{}, ErrNotFound
	}
	var resp struct {
		Roles []struct {
			Name string `json:"name"`
			Rank int    `json:"rank"`
		} `json:"roles"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/groups/%d/roles", c.groupsBase, groupID), &resp); err != nil {
		return GroupRole{}, err
	}
	for _, role := range resp.Roles {
		if strings.EqualFold(role.Name, roleName) {
			return GroupRole{Name: role.Name, Rank: role.Rank}, nil
		}
	}
	return GroupRole{}, ErrNotFound
}

func (c *Client) avatarThumbnail(ctx context.Context, userID int64) (string, error) {
	query := url.Values{}
	query.Set("userIds", fmt.Sprintf("%d", userID))
	query.Set("size", "180x180")
	query.Set("format", "Png")
	var resp struct {
		Data []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}
	url := c.thumbnailBase + "/v1/users/avatar-headshot?" + query.Encode()
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", ErrNotFound
	}
	return resp.Data[0].ImageURL, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return c.do(req, dst)
}

func (c *Client) postJSON(ctx context.Context, url string, payload, dst any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dst)
}

func (c *Client) do(req *http.Request, dst any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
