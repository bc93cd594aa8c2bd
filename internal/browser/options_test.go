package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("DefaultOptions.Headless should be true")
	}
	if opts.Stealth {
		t.Error("DefaultOptions.Stealth should be false")
	}
	if opts.NavigationTimeout <= 0 {
		t.Error("DefaultOptions.NavigationTimeout should be positive")
	}
	if opts.UserAgent == "" {
		t.Error("DefaultOptions.UserAgent should not be empty")
	}
	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("DefaultOptions viewport = %dx%d; expected 1920x1080", opts.ViewportWidth, opts.ViewportHeight)
	}
	assert.NoError(t, opts.Validate())
}

func TestParseDriver(t *testing.T) {
	tests := []struct {
		input   string
		want    Driver
		wantErr bool
	}{
		{input: "chromedp", want: DriverChromedp},
		{input: "ROD", want: DriverRod},
		{input: " rod ", want: DriverRod},
		{input: "HTTP", want: DriverHTTP},
		{input: "", want: DriverChromedp},
		{input: "playwright", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDriver(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownDriver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEngine(t *testing.T) {
	got, err := ParseEngine("Firefox")
	require.NoError(t, err)
	assert.Equal(t, EngineFirefox, got)

	got, err = ParseEngine("chrome")
	require.NoError(t, err)
	assert.Equal(t, EngineChromium, got)

	_, err = ParseEngine("webkit")
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}

func TestParseWaitPolicy(t *testing.T) {
	for _, input := range []string{"networkidle", "fixed-delay", "load"} {
		got, err := ParseWaitPolicy(input)
		require.NoError(t, err)
		assert.Equal(t, WaitPolicy(input), got)
	}

	got, err := ParseWaitPolicy("")
	require.NoError(t, err)
	assert.Equal(t, WaitNetworkIdle, got)

	_, err = ParseWaitPolicy("domcontentloaded")
	assert.Error(t, err)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr error
	}{
		{name: "defaults", mutate: func(o *Options) {}},
		{name: "rod driver", mutate: func(o *Options) { o.Driver = DriverRod }},
		{name: "http driver", mutate: func(o *Options) { o.Driver = DriverHTTP }},
		{name: "firefox rejected", mutate: func(o *Options) { o.Engine = EngineFirefox }, wantErr: ErrUnsupportedEngine},
		{name: "unknown driver", mutate: func(o *Options) { o.Driver = "selenium" }, wantErr: ErrUnknownDriver},
		{name: "zero timeout", mutate: func(o *Options) { o.NavigationTimeout = 0 }, wantErr: errAny},
		{name: "zero viewport", mutate: func(o *Options) { o.ViewportWidth = 0 }, wantErr: errAny},
		{name: "negative delay", mutate: func(o *Options) { o.FixedDelay = -time.Second }, wantErr: errAny},
		{name: "bad wait", mutate: func(o *Options) { o.Wait = "forever" }, wantErr: errAny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(opts)

			err := opts.Validate()
			switch {
			case tt.wantErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.wantErr, errAny):
				assert.Error(t, err)
			default:
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

var errAny = errors.New("any error")

func TestError(t *testing.T) {
	cause := errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := &Error{Driver: DriverChromedp, Op: "navigate", URL: "https://example.invalid", Err: cause}

	assert.Equal(t, "chromedp: navigate https://example.invalid: net::ERR_NAME_NOT_RESOLVED", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestOpen_RejectsFirefox(t *testing.T) {
	opts := DefaultOptions()
	opts.Engine = EngineFirefox

	session, err := Open(t.Context(), opts, nil)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}
