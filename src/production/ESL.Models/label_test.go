package eslmodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "a0:b1:c2:D3:44:55", want: "A0:B1:C2:D3:44:55"},
		{in: "  A0:B1:C2:D3:44:55\t", want: "A0:B1:C2:D3:44:55"},
		{in: "\na0:b1:c2:d3:44:55 ", want: "A0:B1:C2:D3:44:55"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeAddress(tt.in), "input %q", tt.in)
	}
}

func TestNewLabel_Defaults(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	label := NewLabel(" a0:b1:c2:d3:44:55 ", now)

	assert.Equal(t, "A0:B1:C2:D3:44:55", label.MacAddress)
	assert.Equal(t, "New Item", label.ProductName)
	assert.Equal(t, "0.00", label.Price)
	assert.Equal(t, "₹", label.Currency)
	assert.Zero(t, label.BatteryLevel)
	assert.Zero(t, label.WifiSignal)
	assert.Equal(t, now, label.CreatedAt)
	assert.Equal(t, now, label.UpdatedAt)
	assert.Equal(t, now, label.LastCheckIn)
}
