package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	testCases := []struct {
		input    string
		expected Side
		wantErr  bool
	}{
		{"long", SideLong, false},
		{" SHORT ", SideShort, false},
		{"Long", SideLong, false},
		{"cash", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			side, err := ParseSide(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, side)
		})
	}
}

func TestParseAmountSpec(t *testing.T) {
	spec, err := ParseAmountSpec("shares", "10")
	require.NoError(t, err)
	assert.Equal(t, AmountShares, spec.Kind)
	assert.True(t, spec.Value.Equal(decimal.NewFromInt(10)))

	spec, err = ParseAmountSpec("NOTIONAL", "1000.50")
	require.NoError(t, err)
	assert.Equal(t, AmountNotional, spec.Kind)
	assert.Equal(t, "1000.5", spec.Value.String())

	spec, err = ParseAmountSpec("all", "")
	require.NoError(t, err)
	assert.Equal(t, AmountAll, spec.Kind)

	_, err = ParseAmountSpec("qty", "10")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseAmountSpec("shares", "ten")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseAmountSpec("shares", "-1")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParseAmountSpec("notional", "0")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestParseAmountSpec_OutOfRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		ok    bool
	}{
		{"tiny exponent", "1e-20000000", false},
		{"huge exponent", "1e20000000", false},
		{"too many decimals", "0.0000000000000000001", false},
		{"too many integer digits", "1234567890123456789012345678901", false},
		{"huge exponent on long coefficient", "123456e26", false},
		{"max decimals", "0.000000000000000001", true},
		{"max integer digits", "123456789012345678901234567890", true},
		{"scientific within range", "1.5e3", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := ParseAmountSpec("shares", tc.value)
			if tc.ok {
				require.NoError(t, err)
				assert.True(t, spec.Value.IsPositive())
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Less(t, len(err.Error()), 200)
		})
	}
}

func TestAmountSpecValidate_OutOfRange(t *testing.T) {
	for _, v := range []string{"1e-20000000", "1e20000000"} {
		err := Shares(decimal.RequireFromString(v)).Validate()
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Less(t, len(err.Error()), 200)

		err = Notional(decimal.RequireFromString(v)).Validate()
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.NoError(t, All().Validate())
}

func TestAmountSpec_Validate_UnknownKind(t *testing.T) {
	err := AmountSpec{Kind: "cash", Value: decimal.NewFromInt(1)}.Validate()
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCodeOfAndMessageOf(t *testing.T) {
	wrapped := fmt.Errorf("enter position: %w", ErrInsufficientFunds)
	assert.Equal(t, "INSUFFICIENT_FUNDS", CodeOf(wrapped))
	assert.Equal(t, "insufficient cash balance", MessageOf(wrapped))

	other := errors.New("disk full")
	assert.Equal(t, CodeInternal, CodeOf(other))
	assert.Equal(t, "internal error", MessageOf(other))
}

func TestErrorCodesAreDistinct(t *testing.T) {
	all := []*Error{
		ErrAlreadyRegistered, ErrNotRegistered, ErrSymbolNotFound, ErrInvalidPrice,
		ErrInsufficientFunds, ErrOversold, ErrNoSuchPosition, ErrPriceUnavailable, ErrInvalidRequest,
	}
	codes := make(map[string]bool)
	messages := make(map[string]bool)
	for _, e := range all {
		assert.False(t, codes[e.Code], "duplicate code %s", e.Code)
		assert.False(t, messages[e.Message], "duplicate message %s", e.Message)
		codes[e.Code] = true
		messages[e.Message] = true
	}
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(fmt.Errorf("x: %w", ErrSymbolNotFound)))
	assert.True(t, IsRecoverable(ErrPriceUnavailable))
	assert.False(t, IsRecoverable(ErrOversold))
}

func TestAccount_CloneIsDeep(t *testing.T) {
	acct := NewAccount("u1", "alice", DefaultInitialBalance, time.Now())
	acct.Positions = append(acct.Positions, Position{
		Symbol:       "ABC",
		Side:         SideLong,
		Quantity:     decimal.NewFromInt(10),
		AveragePrice: decimal.NewFromInt(100),
	})

	clone := acct.Clone()
	clone.Positions[0].Quantity = decimal.NewFromInt(1)
	clone.CashBalance = decimal.Zero

	assert.True(t, acct.Positions[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, acct.CashBalance.Equal(DefaultInitialBalance))
}

func TestAccount_FindPositionAndSymbols(t *testing.T) {
	acct := NewAccount("u1", "alice", DefaultInitialBalance, time.Now())
	acct.Positions = []Position{
		{Symbol: "ABC", Side: SideLong},
		{Symbol: "XYZ", Side: SideShort},
		{Symbol: "ABC", Side: SideShort},
	}

	assert.Equal(t, 0, acct.FindPosition("ABC", SideLong))
	assert.Equal(t, 2, acct.FindPosition("ABC", SideShort))
	assert.Equal(t, -1, acct.FindPosition("XYZ", SideLong))
	assert.Equal(t, []string{"ABC", "XYZ"}, acct.Symbols())
	assert.Len(t, acct.PositionsFor("ABC"), 2)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "AAPL", NormalizeSymbol("  aapl "))
}
