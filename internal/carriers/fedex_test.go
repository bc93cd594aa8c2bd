package carriers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFedEx_RecognizesTrackingNumber(t *testing.T) {
	target := FedEx()

	tests := []struct {
		name           string
		trackingNumber string
		want           bool
	}{
		{
			name:           "valid 12 digit",
			trackingNumber: "123456789012",
			want:           true,
		},
		{
			name:           "valid 14 digit",
			trackingNumber: "12345678901234",
			want:           true,
		},
		{
			name:           "valid with spaces",
			trackingNumber: "1234 5678 9012",
			want:           true,
		},
		{
			name:           "invalid length",
			trackingNumber: "1234567890123",
			want:           false,
		},
		{
			name:           "contains letters",
			trackingNumber: "12345678901A",
			want:           false,
		},
		{
			name:           "empty string",
			trackingNumber: "",
			want:           false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := target.RecognizesTrackingNumber(tt.trackingNumber); got != tt.want {
				t.Errorf("RecognizesTrackingNumber(%v) = %v, want %v", tt.trackingNumber, got, tt.want)
			}
		})
	}
}

func TestFedEx_Target(t *testing.T) {
	target := FedEx()
	require.NoError(t, target.Validate())

	u, err := target.URL("123456789012")
	require.NoError(t, err)
	assert.Equal(t, "https://www.fedex.com/wtrk/track/?tracknumbers=123456789012", u)
	assert.NotEmpty(t, target.Selectors)
	assert.True(t, target.Stealth)
}
