package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 60 * time.Second

var httpClient = &http.Client{Timeout: requestTimeout}

// envelope mirrors the admin API response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// callAPI performs one admin API request and returns the data payload.
func callAPI(method, path string) (json.RawMessage, error) {
	req, err := http.NewRequest(method, serverURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach cachesync at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, string(body))
	}
	if !env.Success {
		return nil, fmt.Errorf("%s (status %d)", env.Error, resp.StatusCode)
	}
	return env.Data, nil
}
