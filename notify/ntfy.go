package notify

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var _ Notifier = (*NtfyNotifier)(nil)

// NtfyNotifier posts to an ntfy topic URL. The message rides in the
// body and the title in the Title header, per the ntfy publish API.
type NtfyNotifier struct {
	url    string
	client *http.Client
}

func NewNtfyNotifier(url string, client *http.Client) *NtfyNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &NtfyNotifier{url: url, client: client}
}

func (n *NtfyNotifier) Send(title, message string) error {
	req, err := http.NewRequest(http.MethodPost, n.url, strings.NewReader(message))
	if err != nil {
		return errors.Wrap(err, "[NtfyNotifier.Send] NewRequest")
	}
	req.Header.Set("Title", title)

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[NtfyNotifier.Send] Do")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("[NtfyNotifier.Send] HTTP %d from %s", resp.StatusCode, n.url)
	}
	return nil
}
