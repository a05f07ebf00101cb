package lti

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// OutcomeClient delivers one replaceResult grade report to an LMS callback.
type OutcomeClient interface {
	ReplaceResult(ctx context.Context, serviceURL, sourcedID, grade string) error
}

type Client struct {
	http   *http.Client
	signer *Signer
}

type ClientConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		signer: NewSigner(cfg.ConsumerKey, cfg.ConsumerSecret),
	}
}

func (c *Client) ReplaceResult(ctx context.Context, serviceURL, sourcedID, grade string) error {
	body, err := BuildReplaceResult(uuid.NewString(), sourcedID, grade)
	if err != nil {
		return err
	}

	authorization, err := c.signer.Authorization(http.MethodPost, serviceURL, body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serviceURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build outcome request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Authorization", authorization)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post outcome: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("post outcome: %s", res.Status)
	}

	responseBody, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read outcome response: %w", err)
	}
	return ParseOutcomeResponse(responseBody)
}
