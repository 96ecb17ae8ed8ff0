package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2.345", "2.35"},
		{"2.344999", "2.34"},
		{"-2.345", "-2.34"},
		{"-2.346", "-2.35"},
		{"256.74", "256.74"},
		{"0.005", "0.01"},
		{"0", "0"},
		{"51.1999999999999984", "51.2"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundMoney(Dec(tt.in))
			assert.True(t, got.Equal(Dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestRoundingOnlyAtTheEnd(t *testing.T) {
	// 1000 lines worth 0.004 each: rounding each line would show 0.00.
	var lines []Money
	for i := 0; i < 1000; i++ {
		lines = append(lines, Dec("0.004"))
	}
	assert.True(t, RoundMoney(Sum(lines...)).Equal(Dec("4")))
}

func TestSplitWhole(t *testing.T) {
	whole, frac := SplitWhole(Dec("10.5"))
	assert.True(t, whole.Equal(Int(10)))
	assert.True(t, frac.Equal(Dec("0.5")))

	whole, frac = SplitWhole(Dec("3"))
	assert.True(t, whole.Equal(Int(3)))
	assert.True(t, frac.IsZero())
}

func TestBetween(t *testing.T) {
	assert.True(t, Between(Dec("0.25"), Zero(), Int(1)))
	assert.True(t, Between(Int(1), Zero(), Int(1)))
	assert.False(t, Between(Dec("1.01"), Zero(), Int(1)))
}
