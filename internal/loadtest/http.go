package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/groupify/groupify/pkg/logger"
)

// ErrUnexpectedStatus is returned when the service answers with a status
// other than the expected one.
var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends body as JSON, checks the status and decodes the reply into out
// when out is not nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s answered %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// enrollMembers joins every member to the room and submits its profile,
// spread over config.Workers workers.
func enrollMembers(ctx context.Context, client *HTTPClient, config *Config, roomID string, members []Member, stats *Stats) error {
	logger.Get().Info(ctx, "enrolling members",
		logger.Int("members", len(members)),
		logger.Int("workers", config.Workers),
	)

	var (
		joined    int64
		submitted int64
		failed    int64
		firstErr  error
		errOnce   sync.Once
	)

	memberChan := make(chan Member, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range memberChan {
				if err := enrollMember(ctx, client, roomID, m, &joined, &submitted); err != nil {
					atomic.AddInt64(&failed, 1)
					errOnce.Do(func() { firstErr = err })
					if config.Verbose {
						logger.Get().Warn(ctx, "enrol failed", logger.String("memberID", m.ID), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(memberChan)
		for _, m := range members {
			select {
			case <-ctx.Done():
				return
			case memberChan <- m:
			}
		}
	}()

	wg.Wait()

	stats.MembersJoined = int(atomic.LoadInt64(&joined))
	stats.ProfilesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.Failures += int(atomic.LoadInt64(&failed))

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enrolment interrupted: %w", err)
	}
	if firstErr != nil {
		return fmt.Errorf("%d of %d members failed to enrol: %w", failed, len(members), firstErr)
	}

	logger.Get().Info(ctx, "members enrolled",
		logger.Int("joined", stats.MembersJoined),
		logger.Int("profiles", stats.ProfilesSubmitted),
	)
	return nil
}

func enrollMember(ctx context.Context, client *HTTPClient, roomID string, m Member, joined, submitted *int64) error {
	join := map[string]string{"member_id": m.ID, "display_name": m.ID}
	if err := client.do(ctx, http.MethodPost, "/rooms/"+roomID+"/members", join, http.StatusCreated, nil); err != nil {
		return err
	}
	atomic.AddInt64(joined, 1)

	profile := map[string]any{"energies": m.Energies}
	if err := client.do(ctx, http.MethodPut, "/members/"+m.ID+"/profile", profile, http.StatusCreated, nil); err != nil {
		return err
	}
	atomic.AddInt64(submitted, 1)
	return nil
}
