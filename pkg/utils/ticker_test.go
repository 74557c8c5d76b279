package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"aapl", "AAPL"},
		{"  msft ", "MSFT"},
		{"$nvda", "NVDA"},
		{"brk-b", "BRK-B"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTicker(tt.in), "NormalizeTicker(%q)", tt.in)
	}
}

func TestProviderSymbolRoundTrip(t *testing.T) {
	assert.Equal(t, "BRK.B", ToProviderSymbol("BRK-B"))
	assert.Equal(t, "BRK.B", ToProviderSymbol("brk-b"))
	assert.Equal(t, "AAPL", ToProviderSymbol("AAPL"))
	assert.Equal(t, "BRK-B", FromProviderSymbol("BRK.B"))
	assert.Equal(t, "^GSPC", FromProviderSymbol("^GSPC"))
}

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "ZZZZINVALID", "MSFT"}, SplitSymbols("aapl, ZZZZINVALID,,AAPL,msft"))
	assert.Empty(t, SplitSymbols(" , "))
}
