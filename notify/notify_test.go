package notify_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/panel-tools/checkin/internal/config"
	"github.com/panel-tools/checkin/notify"
	"github.com/panel-tools/checkin/notify/notifyfake"
)

func TestNtfySendsTitleHeaderAndBody(t *testing.T) {
	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer server.Close()

	sink := notify.NewNtfyNotifier(server.URL, server.Client())
	require.NoError(t, sink.Send("Checkin Success", "balance went up"))
	require.Equal(t, "Checkin Success", gotTitle)
	require.Equal(t, "balance went up", gotBody)
}

func TestNtfyErrorsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sink := notify.NewNtfyNotifier(server.URL, server.Client())
	require.Error(t, sink.Send("title", "message"))
}

func TestDiscordPostsEmbed(t *testing.T) {
	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer server.Close()

	sink := notify.NewDiscordNotifier(server.URL, server.Client())
	require.NoError(t, sink.Send("Checkin Error", "something broke"))
	require.Len(t, payload.Embeds, 1)
	require.Equal(t, "Checkin Error", payload.Embeds[0].Title)
	require.Equal(t, "something broke", payload.Embeds[0].Description)
}

func TestDispatcherContinuesPastFailingSink(t *testing.T) {
	failing := notifyfake.New()
	failing.Err = errors.New("sink down")
	working := notifyfake.New()

	dispatcher := notify.NewDispatcherWithSinks(zerolog.Nop(), failing, working)
	dispatcher.Notify("title", "message")

	require.Len(t, working.Messages, 1)
	require.Equal(t, "title", working.Messages[0].Title)
	require.Equal(t, "message", working.Messages[0].Body)
}

func TestNewDispatcherSkipsUnknownTypes(t *testing.T) {
	dispatcher := notify.NewDispatcher([]config.NotifierConfig{
		{Type: "ntfy", URL: "https://ntfy.sh/demo"},
		{Type: "discord", URL: "https://discord.com/api/webhooks/x"},
		{Type: "carrier-pigeon", URL: "coop://roof"},
	}, zerolog.Nop())

	require.Equal(t, 2, dispatcher.Sinks())
}

func TestDispatcherWithNoSinksIsQuiet(t *testing.T) {
	dispatcher := notify.NewDispatcher(nil, zerolog.Nop())
	dispatcher.Notify("title", "message")
	require.Zero(t, dispatcher.Sinks())
}
