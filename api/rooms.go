// Package api is the thin HTTP client for the room-creation endpoint.
// Everything after creation happens over the room channel.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	hc      *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateRoom asks the server for a fresh room and returns its id.
func (c *Client) CreateRoom(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rooms", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("room creation failed: %s", resp.Status)
	}

	var body struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("room creation failed: %w", err)
	}
	if body.RoomID == "" {
		return "", fmt.Errorf("room creation failed: empty roomId")
	}
	return body.RoomID, nil
}
