// Package api is the HTTP/JSON client for the LabelArcade backend. Every
// operation attaches the static service API key; authenticated operations
// additionally attach the bearer token read from the token source. Errors are
// classified into TransportError, AuthError and ServerError, with the
// response body captured for diagnostics before raising.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"labelarcade/internal/model"
)

// TokenSource yields the current session token, or "" when no session exists.
type TokenSource interface {
	Token() string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tokens     TokenSource
}

// NewClient builds a Client against baseURL (no trailing slash). httpClient
// may be shared; tokens may be nil for a client that never authenticates.
func NewClient(httpClient *http.Client, baseURL, apiKey string, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		tokens:     tokens,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session token. Rejected credentials come
// back as 401/403 and map to AuthError; a 2xx response without a token is a
// protocol violation and surfaces as ServerError.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	const op = "login"
	body, err := c.do(ctx, op, http.MethodPost, "/auth/login", credentials{Email: email, Password: password}, false)
	if err != nil {
		return "", err
	}
	return decodeToken(op, body)
}

// Register creates an account and returns the fresh session token.
func (c *Client) Register(ctx context.Context, email, username, password, avatar string) (string, error) {
	const op = "register"
	body, err := c.do(ctx, op, http.MethodPost, "/auth/register", registration{
		Email:    email,
		Username: username,
		Password: password,
		Avatar:   avatar,
	}, false)
	if err != nil {
		return "", err
	}
	return decodeToken(op, body)
}

func decodeToken(op string, body []byte) (string, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &ServerError{Op: op, Status: http.StatusOK, Body: string(body)}
	}
	if tr.Token == "" {
		return "", &ServerError{Op: op, Status: http.StatusOK, Body: "token missing from response"}
	}
	return tr.Token, nil
}

// NextTask fetches the next labeling round.
func (c *Client) NextTask(ctx context.Context) (model.Task, error) {
	const op = "next_task"
	body, err := c.do(ctx, op, http.MethodGet, "/tasks/next", nil, true)
	if err != nil {
		return model.Task{}, err
	}
	task, err := model.DecodeTask(body)
	if err != nil {
		return model.Task{}, &ServerError{Op: op, Status: http.StatusOK, Body: err.Error()}
	}
	return task, nil
}

type submitRequest struct {
	Answer             string `json:"answer"`
	TaskID             string `json:"taskId"`
	TimeTakenInSeconds int    `json:"timeTakenInSeconds"`
}

// SubmitAnswer posts the selected choice key for a task. The track id routes
// the submission server-side and is part of the path, not the body.
func (c *Client) SubmitAnswer(ctx context.Context, trackID, choiceKey, taskID string, elapsedSeconds int) (model.SubmissionResult, error) {
	const op = "submit_answer"
	body, err := c.do(ctx, op, http.MethodPost, "/tasks/"+trackID+"/submit", submitRequest{
		Answer:             choiceKey,
		TaskID:             taskID,
		TimeTakenInSeconds: elapsedSeconds,
	}, true)
	if err != nil {
		return model.SubmissionResult{}, err
	}
	var res model.SubmissionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return model.SubmissionResult{}, &ServerError{Op: op, Status: http.StatusOK, Body: string(body)}
	}
	return res, nil
}

// SubmissionHistory returns the full append-only submission list.
func (c *Client) SubmissionHistory(ctx context.Context) ([]model.SubmissionRecord, error) {
	const op = "submission_history"
	body, err := c.do(ctx, op, http.MethodGet, "/submissions", nil, true)
	if err != nil {
		return nil, err
	}
	var records []model.SubmissionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &ServerError{Op: op, Status: http.StatusOK, Body: string(body)}
	}
	return records, nil
}

// AverageSubmissionTime returns the server-computed average-time payload
// verbatim; its shape is implementation-defined and the chart screen derives
// its own averages from SubmissionHistory anyway.
func (c *Client) AverageSubmissionTime(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, "average_time", http.MethodGet, "/submissions/average-time", nil, true)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Leaderboard returns the server-ordered ranking.
func (c *Client) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	const op = "leaderboard"
	body, err := c.do(ctx, op, http.MethodGet, "/leaderboard", nil, true)
	if err != nil {
		return nil, err
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &ServerError{Op: op, Status: http.StatusOK, Body: string(body)}
	}
	return entries, nil
}

// Profile fetches the caller's profile.
func (c *Client) Profile(ctx context.Context) (model.Profile, error) {
	return c.profileCall(ctx, "profile", http.MethodGet, nil)
}

// UpdateProfile applies a partial profile edit and returns the stored result.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (model.Profile, error) {
	return c.profileCall(ctx, "update_profile", http.MethodPut, update)
}

func (c *Client) profileCall(ctx context.Context, op, method string, payload any) (model.Profile, error) {
	body, err := c.do(ctx, op, method, "/user/profile", payload, true)
	if err != nil {
		return model.Profile{}, err
	}
	var profile model.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return model.Profile{}, &ServerError{Op: op, Status: http.StatusOK, Body: string(body)}
	}
	return profile, nil
}

// do performs one request/response round trip and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, payload any, authed bool) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Op: op, Status: resp.StatusCode, Body: string(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &ServerError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
	if readErr != nil {
		return nil, &TransportError{Op: op, Err: readErr}
	}
	return body, nil
}
