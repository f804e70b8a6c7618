package notify

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

const discordEmbedColor = 3066993

var _ Notifier = (*DiscordNotifier)(nil)

// DiscordNotifier posts an embed to a Discord webhook.
type DiscordNotifier struct {
	webhook string
	client  *http.Client
}

func NewDiscordNotifier(webhook string, client *http.Client) *DiscordNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &DiscordNotifier{webhook: webhook, client: client}
}

func (n *DiscordNotifier) Send(title, message string) error {
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": message,
				"color":       discordEmbedColor,
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "[DiscordNotifier.Send] Marshal")
	}

	resp, err := n.client.Post(n.webhook, "application/json", bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "[DiscordNotifier.Send] Post")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("[DiscordNotifier.Send] HTTP %d from webhook", resp.StatusCode)
	}
	return nil
}
