package core

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tsundoku-app/tsundoku/internal/download"
	"github.com/tsundoku-app/tsundoku/internal/queue"
	"github.com/tsundoku-app/tsundoku/internal/utils"
)

// SSE event names used by the /events endpoint.
const (
	EventStatus   = "status"
	EventQueued   = "queued"
	EventStarted  = "started"
	EventComplete = "complete"
	EventError    = "error"
	EventRemoved  = "removed"
	EventPaused   = "paused"
)

// EventName returns the SSE event name for msg, or "" for unknown messages.
func EventName(msg any) string {
	switch msg.(type) {
	case queue.Status:
		return EventStatus
	case download.ItemQueuedMsg:
		return EventQueued
	case download.ItemStartedMsg:
		return EventStarted
	case download.ItemCompleteMsg:
		return EventComplete
	case download.ItemErrorMsg:
		return EventError
	case download.ItemRemovedMsg:
		return EventRemoved
	case download.QueuePausedMsg:
		return EventPaused
	}
	return ""
}

// decodeEvent is the inverse of EventName.
func decodeEvent(name string, data []byte) (any, error) {
	var err error
	switch name {
	case EventStatus:
		var m queue.Status
		err = json.Unmarshal(data, &m)
		return m, err
	case EventQueued:
		var m download.ItemQueuedMsg
		err = json.Unmarshal(data, &m)
		return m, err
	case EventStarted:
		var m download.ItemStartedMsg
		err = json.Unmarshal(data, &m)
		return m, err
	case EventComplete:
		var m download.ItemCompleteMsg
		err = json.Unmarshal(data, &m)
		return m, err
	case EventError:
		var m download.ItemErrorMsg
		if err = json.Unmarshal(data, &m); err == nil {
			m.Err = errors.New(m.Message)
		}
		return m, err
	case EventRemoved:
		var m download.ItemRemovedMsg
		err = json.Unmarshal(data, &m)
		return m, err
	case EventPaused:
		var m download.QueuePausedMsg
		err = json.Unmarshal(data, &m)
		return m, err
	}
	return nil, fmt.Errorf("unknown event %q", name)
}

// RemoteService implements Service for a running instance.
type RemoteService struct {
	BaseURL string
	Token   string
	Client  *http.Client
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewRemoteService creates a client for the API at baseURL.
func NewRemoteService(baseURL string, token string) *RemoteService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RemoteService{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *RemoteService) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		// Limit error body read to 1KB
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(bodyBytes))
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", download.ErrNotFound, msg)
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, msg)
	}

	return resp, nil
}

// getJSON performs a request and decodes the JSON response into out.
func (s *RemoteService) getJSON(method, path string, body, out any) error {
	resp, err := s.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *RemoteService) Status() (queue.Status, error) {
	var st queue.Status
	err := s.getJSON(http.MethodGet, "/status", nil, &st)
	return st, err
}

func (s *RemoteService) Queue() ([]download.Item, error) {
	var items []download.Item
	err := s.getJSON(http.MethodGet, "/queue", nil, &items)
	return items, err
}

func (s *RemoteService) Add(req AddRequest) ([]download.Item, error) {
	var items []download.Item
	err := s.getJSON(http.MethodPost, "/add", req, &items)
	return items, err
}

func (s *RemoteService) Pause() error {
	return s.getJSON(http.MethodPost, "/pause", nil, nil)
}

func (s *RemoteService) Resume() error {
	return s.getJSON(http.MethodPost, "/resume", nil, nil)
}

func (s *RemoteService) Clear() error {
	return s.getJSON(http.MethodPost, "/clear", nil, nil)
}

func (s *RemoteService) Remove(id string) error {
	return s.getJSON(http.MethodPost, "/remove?id="+url.QueryEscape(id), nil, nil)
}

func (s *RemoteService) History(limit int) ([]download.HistoryEntry, error) {
	var entries []download.HistoryEntry
	err := s.getJSON(http.MethodGet, "/history?limit="+strconv.Itoa(limit), nil, &entries)
	return entries, err
}

func (s *RemoteService) Toggles() (Toggles, error) {
	var t Toggles
	err := s.getJSON(http.MethodGet, "/toggles", nil, &t)
	return t, err
}

func (s *RemoteService) SetToggles(req ToggleRequest) (Toggles, error) {
	var t Toggles
	err := s.getJSON(http.MethodPost, "/toggles", req, &t)
	return t, err
}

// Shutdown stops the client's streams. The remote instance keeps running.
func (s *RemoteService) Shutdown() error {
	s.cancel()
	return nil
}

// StreamStatus follows the status events of the SSE stream.
func (s *RemoteService) StreamStatus(ctx context.Context) (<-chan queue.Status, error) {
	events, err := s.StreamEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan queue.Status, 1)
	go func() {
		defer close(out)
		for msg := range events {
			st, ok := msg.(queue.Status)
			if !ok {
				continue
			}
			// Keep only the newest status for slow readers.
			select {
			case <-out:
			default:
			}
			out <- st
		}
	}()
	return out, nil
}

// StreamEvents returns a channel that receives events via SSE, reconnecting
// with backoff until ctx is done or the service shuts down.
func (s *RemoteService) StreamEvents(ctx context.Context) (<-chan any, error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.ctx.Done():
			cancel()
		}
	}()

	ch := make(chan any, 100)
	go s.streamWithReconnect(ctx, cancel, ch)
	return ch, nil
}

func (s *RemoteService) streamWithReconnect(ctx context.Context, cancel context.CancelFunc, ch chan any) {
	defer close(ch)
	defer cancel()
	backoff := 1 * time.Second
	for {
		err := s.connectSSE(ctx, ch)
		if ctx.Err() != nil {
			return
		}
		utils.Debug("Event stream disconnected: %v", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *RemoteService) connectSSE(ctx context.Context, ch chan any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/events", nil)
	if err != nil {
		return err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream is long lived; the client timeout would cut it off.
	client := *s.Client
	client.Timeout = 0
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to connect to event stream: %s", resp.Status)
	}

	var eventType string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			msg, err := decodeEvent(eventType, []byte(data))
			if err != nil {
				utils.Debug("Skipping event %q: %v", eventType, err)
				continue
			}
			if _, isStatus := msg.(queue.Status); isStatus {
				// Status events block instead of dropping.
				select {
				case ch <- msg:
				case <-ctx.Done():
					return nil
				}
				continue
			}
			select {
			case ch <- msg:
			default:
				// Drop when the reader is slow
			}
		case line == "":
			eventType = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}
