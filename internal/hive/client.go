// Package hive is a thin JSON-RPC 2.0 client for condenser-style read calls
// against a pool of public Hive nodes. Calls start at a round-robin node and
// fail over through the remaining ones; the pool counts as unavailable only
// after every node refused the call.
package hive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/atomic"

	"snapfeed/internal/models"
	"snapfeed/internal/providers"
	"snapfeed/internal/structures"
)

// ErrUnavailable marks a call that failed on every configured node.
var ErrUnavailable = errors.New("all hive nodes unavailable")

type rpcRequest struct {
	JsonRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	JsonRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type blogQuery struct {
	Tag           string `json:"tag"`
	Limit         int    `json:"limit"`
	StartAuthor   string `json:"start_author,omitempty"`
	StartPermlink string `json:"start_permlink,omitempty"`
}

type followEntry struct {
	Follower  string   `json:"follower"`
	Following string   `json:"following"`
	What      []string `json:"what"`
}

type Client struct {
	nodes        []string
	client       *http.Client
	account      string
	pageSize     int
	maxFollowing int
	logger       providers.Logger
	metrics      providers.MetricsProviderInterface
	next         atomic.Uint64
	reqID        atomic.Uint64
}

func NewClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *Client {
	pageSize := conf.Hive.FollowingPageSize
	if pageSize < 1 {
		pageSize = 100
	}
	maxFollowing := conf.Hive.FollowingMax
	if maxFollowing < 1 {
		maxFollowing = 1000
	}
	return &Client{
		nodes:        conf.Hive.Nodes,
		client:       &http.Client{Timeout: conf.Hive.Timeout},
		account:      conf.Hive.ContainerAccount,
		pageSize:     pageSize,
		maxFollowing: maxFollowing,
		logger:       logger,
		metrics:      metrics,
	}
}

// ListContainerPosts returns container posts under the configured account,
// newest first. A nil cursor starts at the newest container; with a cursor
// the first returned item may echo the cursor post, which callers skip.
func (c *Client) ListContainerPosts(ctx context.Context, limit int, cursor *models.Cursor) ([]models.ContainerRef, error) {
	query := blogQuery{Tag: c.account, Limit: limit}
	if cursor != nil {
		query.StartAuthor = cursor.Author
		query.StartPermlink = cursor.Permlink
	}
	var out []models.ContainerRef
	if err := c.call(ctx, "condenser_api.get_discussions_by_blog", []interface{}{query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReplies returns all direct replies under the given post. The upstream
// call has no pagination parameters; large containers come back in full.
func (c *Client) ListReplies(ctx context.Context, author string, permlink string) ([]models.Snap, error) {
	var out []models.Snap
	if err := c.call(ctx, "condenser_api.get_content_replies", []interface{}{author, permlink}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFollowing pages through the accounts account follows until the upstream
// runs dry or the configured cap is reached. Follow pagination is inclusive
// of the start entry, so continuation pages drop the echo.
func (c *Client) GetFollowing(ctx context.Context, account string) ([]string, error) {
	out := make([]string, 0, c.pageSize)
	start := ""
	for len(out) < c.maxFollowing {
		var page []followEntry
		if err := c.call(ctx, "condenser_api.get_following", []interface{}{account, start, "blog", c.pageSize}, &page); err != nil {
			return nil, err
		}
		added := 0
		for _, entry := range page {
			if start != "" && entry.Following == start {
				continue
			}
			out = append(out, entry.Following)
			added++
			if len(out) >= c.maxFollowing {
				break
			}
		}
		if len(page) < c.pageSize || added == 0 {
			break
		}
		start = page[len(page)-1].Following
	}
	return out, nil
}

// call runs one JSON-RPC method against the node pool, failing over on
// transport errors, non-2xx statuses, and RPC error envelopes. The returned
// error wraps ErrUnavailable once every node has been tried.
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	payload, err := json.Marshal(rpcRequest{
		JsonRPC: "2.0",
		ID:      c.reqID.Inc(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	start := c.next.Inc()
	var lastErr error
	for i := 0; i < len(c.nodes); i++ {
		node := c.nodes[(start+uint64(i))%uint64(len(c.nodes))]

		began := time.Now()
		err := c.post(ctx, node, payload, out)
		c.metrics.ObserveGatewayDuration(method, time.Since(began))
		if err == nil {
			c.metrics.IncGatewayCalls(method, node, "ok")
			return nil
		}

		c.metrics.IncGatewayCalls(method, node, "error")
		c.logger.Warnf(providers.TypeGateway, "Node %s failed %s: %v", node, method, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, method, lastErr)
}

func (c *Client) post(ctx context.Context, node string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}
