// Package lcu talks to the League client's local HTTPS API and finds the
// running client's port and token.
//
// Response bodies are read through io.LimitReader at maxResponseSize; the
// client only ever returns small JSON documents.
package lcu

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/engine"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultTimeout = 5 * time.Second

	// Basic auth user the client expects alongside the remoting token.
	authUser = "riot"

	pathSummoner    = "/lol-summoner/v1/current-summoner"
	pathGameflow    = "/lol-gameflow/v1/session"
	pathReadyAccept = "/lol-matchmaking/v1/ready-check/accept"

	maxResponseSize int64 = 1 << 20
	maxErrorBody          = 512

	unknownSummoner = "Unknown"
	AcceptedMessage = "Match accepted"
)

type Options struct {
	// Host defaults to the loopback address the client binds.
	Host    string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client is safe for concurrent use. Credentials are passed per call since
// the client restarts with a new port and token.
type Client struct {
	host   string
	http   *http.Client
	logger *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	transport := &http.Transport{
		// The client serves a self-signed certificate on loopback.
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		DialContext:         (&net.Dialer{Timeout: opts.Timeout}).DialContext,
		TLSHandshakeTimeout: opts.Timeout,
		MaxIdleConnsPerHost: 2,
	}
	return &Client{
		host:   opts.Host,
		http:   &http.Client{Transport: transport, Timeout: opts.Timeout},
		logger: opts.Logger,
	}
}

// Validate reports whether creds are still accepted. Any failure is
// wrapped in ErrAuthInvalid.
func (c *Client) Validate(ctx context.Context, creds engine.Credentials) error {
	resp, err := c.do(ctx, http.MethodGet, pathSummoner, creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthInvalid, err)
	}
	drain(resp.Body)
	return nil
}

type summonerResponse struct {
	GameName         string `json:"gameName"`
	TagLine          string `json:"tagLine"`
	DisplayName      string `json:"displayName"`
	SummonerLevel    int    `json:"summonerLevel"`
	ProfileIconID    int    `json:"profileIconId"`
	XPSinceLastLevel int    `json:"xpSinceLastLevel"`
	XPUntilNextLevel int    `json:"xpUntilNextLevel"`
}

// displayName prefers the Riot ID, then the legacy name.
func (s summonerResponse) displayName() string {
	switch {
	case s.GameName != "" && s.TagLine != "":
		return s.GameName + "#" + s.TagLine
	case s.GameName != "":
		return s.GameName
	case s.DisplayName != "":
		return s.DisplayName
	default:
		return unknownSummoner
	}
}

func (c *Client) Summoner(ctx context.Context, creds engine.Credentials) (engine.Summoner, error) {
	var body summonerResponse
	if err := c.getJSON(ctx, pathSummoner, creds, &body); err != nil {
		return engine.Summoner{}, err
	}
	return engine.Summoner{
		DisplayName:      body.displayName(),
		Level:            max(body.SummonerLevel, 0),
		ProfileIconID:    max(body.ProfileIconID, 0),
		XPSinceLastLevel: max(body.XPSinceLastLevel, 0),
		XPUntilNextLevel: max(body.XPUntilNextLevel, 0),
	}, nil
}

// GameflowPhase returns the session phase. A session without a phase field
// is PhaseNone.
func (c *Client) GameflowPhase(ctx context.Context, creds engine.Credentials) (engine.Phase, error) {
	var body struct {
		Phase string `json:"phase"`
	}
	if err := c.getJSON(ctx, pathGameflow, creds, &body); err != nil {
		return engine.PhaseNone, err
	}
	return engine.ParsePhase(body.Phase), nil
}

// AcceptReadyCheck accepts the pending match and returns a human message.
func (c *Client) AcceptReadyCheck(ctx context.Context, creds engine.Credentials) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, pathReadyAccept, creds)
	if err != nil {
		return "", err
	}
	drain(resp.Body)
	return AcceptedMessage, nil
}

func (c *Client) getJSON(ctx context.Context, path string, creds engine.Credentials, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, creds)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Op: "GET " + path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DecodeError{Op: "GET " + path, Err: err}
	}
	return nil
}

// do sends the request and returns the response only for 2xx statuses.
// The caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, creds engine.Credentials) (*http.Response, error) {
	op := method + " " + path
	if !creds.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}

	url := "https://" + net.JoinHostPort(c.host, creds.Port) + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.SetBasicAuth(authUser, creds.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := errorBody(resp.Body)
		resp.Body.Close()
		c.logger.Debug("client api error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("port", creds.Port),
		)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: body}
	}
	return resp, nil
}

// errorBody keeps a short, single-line excerpt for error messages.
func errorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return strings.TrimSpace(string(data))
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxResponseSize))
	body.Close()
}
