package browser

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrier-probe/internal/probe"
)

func TestHTTPSession(t *testing.T) {
	var gotUA, gotLang string
	mux := http.NewServeMux()
	mux.HandleFunc("/track", func(w http.ResponseWriter, r *http.Request) {
		gotUA, gotLang = r.UserAgent(), r.Header.Get("Accept-Language")
		fmt.Fprint(w, `<html><head><title>Tracking Results</title></head><body>
			<h1>Tracking</h1>
			<div class="tb-status">Delivered</div>
			<button class="search-btn">Track</button>
		</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.Driver = DriverHTTP
	session, err := Open(t.Context(), opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// nothing loaded yet
	_, err = probe.Probe(session.Page(), []string{"h1"}, probe.DefaultOptions())
	assert.ErrorIs(t, err, probe.ErrPageUnavailable)

	require.NoError(t, session.Navigate(t.Context(), srv.URL+"/track"))
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "en-US", gotLang)

	require.NoError(t, session.Settle(t.Context(), 0))

	title, err := session.Title(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Tracking Results", title)

	text, err := session.VisibleText(t.Context(), "body")
	require.NoError(t, err)
	assert.Equal(t, "Tracking\nDelivered\nTrack", text)

	clicked, err := session.Submit(t.Context(), ".search-btn")
	require.NoError(t, err)
	assert.False(t, clicked)

	_, err = session.Submit(t.Context(), "button[")
	assert.Error(t, err)

	_, err = session.Screenshot(t.Context())
	assert.ErrorIs(t, err, ErrNotSupported)

	results, err := probe.Probe(session.Page(), []string{".tb-status", ".missing"}, probe.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []probe.Result{{Selector: ".tb-status", Count: 1, Previews: []string{"Delivered"}}}, results)

	require.NoError(t, session.Close())
	_, err = session.Markup(t.Context())
	assert.ErrorIs(t, err, probe.ErrPageUnavailable)
}

func TestHTTPSession_ScriptsDoNotRun(t *testing.T) {
	srv := trackingServer(t)

	opts := DefaultOptions()
	opts.Driver = DriverHTTP
	session, err := Open(t.Context(), opts, nil)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(t.Context(), srv.URL+"/track"))

	outcomes, err := probe.Inspect(session.Page(), []string{".tb-status", "#results"}, probe.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, probe.StatusEmpty, outcomes[0].Status)
	assert.Equal(t, probe.StatusMatched, outcomes[1].Status)
}

func TestHTTPSession_ErrorStatusIsProbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `<html><body><h1>Not Found</h1></body></html>`)
	}))
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.Driver = DriverHTTP
	session, err := Open(t.Context(), opts, nil)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(t.Context(), srv.URL))
	text, err := session.VisibleText(t.Context(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "Not Found", text)
}

func TestHTTPSession_NavigateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	opts := DefaultOptions()
	opts.Driver = DriverHTTP
	session, err := Open(t.Context(), opts, nil)
	require.NoError(t, err)
	defer session.Close()

	err = session.Navigate(t.Context(), url)
	var browserErr *Error
	require.ErrorAs(t, err, &browserErr)
	assert.Equal(t, DriverHTTP, browserErr.Driver)
	assert.Equal(t, "navigate", browserErr.Op)
}
