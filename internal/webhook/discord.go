package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"plurald/internal/cache"
	"plurald/internal/proxy"
)

// DefaultAPIBase is Discord's REST API root.
const DefaultAPIBase = "https://discord.com/api/v10"

// webhookName is the name under which plurald creates its per-channel webhooks.
const webhookName = "plurald"

// DiscordExecutor delivers proxied messages through Discord's webhook API.
// A webhook is ensured once per channel and remembered in a TTL cache, so
// repeated sends do not re-query the channel's webhook list.
type DiscordExecutor struct {
	token    string
	apiBase  string
	client   *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	logger   proxy.Logger
}

var _ proxy.Executor = (*DiscordExecutor)(nil)

// NewDiscordExecutor creates an executor authenticated as a bot.
// apiBase may be empty to use the public API; c holds channel-webhook lookups.
func NewDiscordExecutor(token, apiBase string, c cache.Cache, cacheTTL time.Duration, logger proxy.Logger) *DiscordExecutor {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &DiscordExecutor{
		token:    token,
		apiBase:  apiBase,
		client:   &http.Client{Timeout: 15 * time.Second},
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

type channelWebhook struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// ensureWebhook returns the channel's plurald webhook, creating it on first use.
func (d *DiscordExecutor) ensureWebhook(ctx context.Context, channelID string) (*channelWebhook, error) {
	key := "webhook:" + channelID
	if cached, err := d.cache.Get(ctx, key); err == nil {
		var wh channelWebhook
		if json.Unmarshal([]byte(cached), &wh) == nil && wh.ID != "" {
			return &wh, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		d.logger.Warn("webhook cache lookup failed", "channel", channelID, "error", err)
	}

	var hooks []channelWebhook
	status, err := d.do(ctx, http.MethodGet, fmt.Sprintf("%s/channels/%s/webhooks", d.apiBase, channelID), true, nil, &hooks)
	if err != nil {
		return nil, fmt.Errorf("listing channel webhooks: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("listing channel webhooks: unexpected status %d", status)
	}

	var wh *channelWebhook
	for i := range hooks {
		if hooks[i].Name == webhookName && hooks[i].Token != "" {
			wh = &hooks[i]
			break
		}
	}
	if wh == nil {
		var created channelWebhook
		status, err := d.do(ctx, http.MethodPost, fmt.Sprintf("%s/channels/%s/webhooks", d.apiBase, channelID), true,
			map[string]string{"name": webhookName}, &created)
		if err != nil {
			return nil, fmt.Errorf("creating channel webhook: %w", err)
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return nil, fmt.Errorf("creating channel webhook: unexpected status %d", status)
		}
		wh = &created
	}

	if encoded, err := json.Marshal(wh); err == nil {
		if err := d.cache.Set(ctx, key, string(encoded), d.cacheTTL); err != nil {
			d.logger.Warn("webhook cache store failed", "channel", channelID, "error", err)
		}
	}
	return wh, nil
}

type executePayload struct {
	Content   string `json:"content"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type messageResponse struct {
	ID string `json:"id"`
}

// Send delivers content to a channel under the given identity.
func (d *DiscordExecutor) Send(ctx context.Context, channelID, displayName, avatarURL, content string) (string, error) {
	wh, err := d.ensureWebhook(ctx, channelID)
	if err != nil {
		return "", err
	}

	var msg messageResponse
	status, err := d.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/webhooks/%s/%s?wait=true", d.apiBase, wh.ID, wh.Token), false,
		executePayload{Content: content, Username: displayName, AvatarURL: avatarURL}, &msg)
	if err != nil {
		return "", fmt.Errorf("executing webhook: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("executing webhook: unexpected status %d", status)
	}
	return msg.ID, nil
}

// Edit applies a partial update to a delivered message. Webhook identity
// fields cannot be edited in place, so a name or avatar change replaces the
// message: delete then re-send, returning the new external id.
func (d *DiscordExecutor) Edit(ctx context.Context, channelID, externalID string, req proxy.EditRequest) (string, error) {
	wh, err := d.ensureWebhook(ctx, channelID)
	if err != nil {
		return "", err
	}

	if req.DisplayName == nil && req.AvatarURL == nil {
		if req.Content == nil {
			return externalID, nil
		}
		status, err := d.do(ctx, http.MethodPatch,
			fmt.Sprintf("%s/webhooks/%s/%s/messages/%s", d.apiBase, wh.ID, wh.Token, externalID), false,
			map[string]string{"content": *req.Content}, nil)
		if err != nil {
			return "", fmt.Errorf("editing webhook message: %w", err)
		}
		if status == http.StatusNotFound {
			return "", proxy.ErrExternalGone
		}
		if status != http.StatusOK {
			return "", fmt.Errorf("editing webhook message: unexpected status %d", status)
		}
		return externalID, nil
	}

	if req.Content == nil {
		return "", fmt.Errorf("identity edits require content to re-deliver")
	}
	if err := d.Delete(ctx, channelID, externalID); err != nil && !errors.Is(err, proxy.ErrExternalGone) {
		return "", err
	}
	var name, avatar string
	if req.DisplayName != nil {
		name = *req.DisplayName
	}
	if req.AvatarURL != nil {
		avatar = *req.AvatarURL
	}
	return d.Send(ctx, channelID, name, avatar, *req.Content)
}

// Delete removes a delivered message. Returns proxy.ErrExternalGone when the
// message no longer exists.
func (d *DiscordExecutor) Delete(ctx context.Context, channelID, externalID string) error {
	wh, err := d.ensureWebhook(ctx, channelID)
	if err != nil {
		return err
	}

	status, err := d.do(ctx, http.MethodDelete,
		fmt.Sprintf("%s/webhooks/%s/%s/messages/%s", d.apiBase, wh.ID, wh.Token, externalID), false, nil, nil)
	if err != nil {
		return fmt.Errorf("deleting webhook message: %w", err)
	}
	if status == http.StatusNotFound {
		return proxy.ErrExternalGone
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return fmt.Errorf("deleting webhook message: unexpected status %d", status)
	}
	return nil
}

// do performs one JSON request. authed requests carry the bot token; webhook
// execution endpoints authenticate through the webhook token in the URL.
func (d *DiscordExecutor) do(ctx context.Context, method, url string, authed bool, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bot "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}
