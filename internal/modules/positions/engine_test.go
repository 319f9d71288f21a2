package positions

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newAccount() domain.Account {
	return domain.NewAccount("u1", "alice", domain.DefaultInitialBalance, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func priceTable(prices map[string]string) domain.PriceFunc {
	return func(symbol string) (decimal.Decimal, error) {
		p, ok := prices[symbol]
		if !ok {
			return decimal.Zero, domain.ErrSymbolNotFound
		}
		return d(p), nil
	}
}

func TestEnterExit_LongScenario(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()

	fill, err := e.EnterPosition(&acct, domain.SideLong, "abc", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)
	assert.True(t, fill.Quantity.Equal(d("10")))
	assert.True(t, acct.CashBalance.Equal(d("9000")))
	require.Len(t, acct.Positions, 1)
	assert.Equal(t, "ABC", acct.Positions[0].Symbol)
	assert.True(t, acct.Positions[0].AveragePrice.Equal(d("100")))

	fill, err = e.ExitPosition(&acct, domain.SideLong, "ABC", d("120"), domain.Shares(d("5")))
	require.NoError(t, err)
	assert.True(t, fill.CashDelta.Equal(d("600")))
	assert.True(t, acct.CashBalance.Equal(d("9600")))
	require.Len(t, acct.Positions, 1)
	assert.True(t, acct.Positions[0].Quantity.Equal(d("5")))
	assert.True(t, acct.Positions[0].AveragePrice.Equal(d("100")))

	fill, err = e.ExitPosition(&acct, domain.SideLong, "ABC", d("90"), domain.All())
	require.NoError(t, err)
	assert.True(t, fill.CashDelta.Equal(d("450")))
	assert.True(t, fill.RemainingQuantity.IsZero())
	assert.True(t, acct.CashBalance.Equal(d("10050")))
	assert.Empty(t, acct.Positions)
}

func TestEnterExit_ShortScenario(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()

	_, err := e.EnterPosition(&acct, domain.SideShort, "XYZ", d("50"), domain.Shares(d("10")))
	require.NoError(t, err)
	assert.True(t, acct.CashBalance.Equal(d("9500")))

	fill, err := e.ExitPosition(&acct, domain.SideShort, "XYZ", d("60"), domain.Shares(d("10")))
	require.NoError(t, err)
	assert.True(t, fill.CashDelta.Equal(d("400")))
	assert.True(t, acct.CashBalance.Equal(d("9900")))
	assert.Empty(t, acct.Positions)
}

func TestEnterPosition_Notional(t *testing.T) {
	t.Run("exact fill", func(t *testing.T) {
		e := NewEngine(DefaultQuantityScale)
		acct := newAccount()
		fill, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("250"), domain.Notional(d("1000")))
		require.NoError(t, err)
		assert.True(t, fill.Quantity.Equal(d("4")))
		assert.True(t, acct.CashBalance.Equal(d("9000")))
	})

	t.Run("whole shares truncate", func(t *testing.T) {
		e := NewEngine(0)
		acct := newAccount()
		fill, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("300"), domain.Notional(d("1000")))
		require.NoError(t, err)
		assert.True(t, fill.Quantity.Equal(d("3")))
		assert.True(t, acct.CashBalance.Equal(d("9100")))
	})

	t.Run("fractional shares never overspend", func(t *testing.T) {
		e := NewEngine(DefaultQuantityScale)
		acct := newAccount()
		fill, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("300"), domain.Notional(d("1000")))
		require.NoError(t, err)
		assert.True(t, fill.Quantity.Equal(d("3.33333333")))
		assert.True(t, fill.CashDelta.Neg().LessThanOrEqual(d("1000")))
	})

	t.Run("too small buys nothing", func(t *testing.T) {
		e := NewEngine(0)
		acct := newAccount()
		_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("300"), domain.Notional(d("100")))
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.Empty(t, acct.Positions)
	})
}

func TestEnterPosition_All(t *testing.T) {
	e := NewEngine(0)
	acct := newAccount()

	fill, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("3000"), domain.All())
	require.NoError(t, err)
	assert.True(t, fill.Quantity.Equal(d("3")))
	assert.True(t, acct.CashBalance.Equal(d("1000")))

	_, err = e.EnterPosition(&acct, domain.SideLong, "ABC", d("3000"), domain.All())
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestEnterPosition_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		side    domain.Side
		symbol  string
		price   string
		amount  domain.AmountSpec
		wantErr error
	}{
		{"insufficient funds", domain.SideLong, "ABC", "100", domain.Shares(d("101")), domain.ErrInsufficientFunds},
		{"zero price", domain.SideLong, "ABC", "0", domain.Shares(d("1")), domain.ErrInvalidPrice},
		{"negative price", domain.SideShort, "ABC", "-5", domain.Shares(d("1")), domain.ErrInvalidPrice},
		{"unknown side", domain.Side("sideways"), "ABC", "100", domain.Shares(d("1")), domain.ErrInvalidRequest},
		{"empty symbol", domain.SideLong, "  ", "100", domain.Shares(d("1")), domain.ErrInvalidRequest},
		{"zero shares", domain.SideLong, "ABC", "100", domain.Shares(decimal.Zero), domain.ErrInvalidRequest},
		{"too precise", domain.SideLong, "ABC", "100", domain.Shares(d("0.000000001")), domain.ErrInvalidRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(DefaultQuantityScale)
			acct := newAccount()
			before := acct.Clone()

			_, err := e.EnterPosition(&acct, tc.side, tc.symbol, d(tc.price), tc.amount)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, before, acct)
		})
	}
}

func TestExitPosition_OversoldLeavesAccountUnchanged(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideShort, "XYZ", d("20"), domain.Shares(d("5")))
	require.NoError(t, err)

	before := acct.Clone()
	_, err = e.ExitPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10.5")))
	assert.ErrorIs(t, err, domain.ErrOversold)
	assert.Equal(t, before, acct)

	_, err = e.ExitPosition(&acct, domain.SideShort, "XYZ", d("20"), domain.Notional(d("1000")))
	assert.ErrorIs(t, err, domain.ErrOversold)
	assert.Equal(t, before, acct)
}

func TestEnterExit_RejectsOutOfRangeAmounts(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)
	before := acct.Clone()

	for _, v := range []string{"1e-20000000", "1e20000000"} {
		for _, amount := range []domain.AmountSpec{domain.Shares(d(v)), domain.Notional(d(v))} {
			start := time.Now()
			_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), amount)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Less(t, len(err.Error()), 200)

			_, err = e.ExitPosition(&acct, domain.SideLong, "ABC", d("100"), amount)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Less(t, len(err.Error()), 200)

			assert.Less(t, time.Since(start), time.Second)
		}
	}
	assert.Equal(t, before, acct)
}

func TestExitPosition_NoSuchPosition(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("1")))
	require.NoError(t, err)

	_, err = e.ExitPosition(&acct, domain.SideShort, "ABC", d("100"), domain.All())
	assert.ErrorIs(t, err, domain.ErrNoSuchPosition)

	_, err = e.ExitPosition(&acct, domain.SideLong, "QQQ", d("100"), domain.All())
	assert.ErrorIs(t, err, domain.ErrNoSuchPosition)
}

func TestRoundTripNeutrality(t *testing.T) {
	testCases := []struct {
		side  domain.Side
		price string
		qty   string
	}{
		{domain.SideLong, "100", "10"},
		{domain.SideLong, "3.14159", "7.5"},
		{domain.SideShort, "42.42", "3"},
		{domain.SideShort, "0.0001", "12345.12345678"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.side)+"@"+tc.price, func(t *testing.T) {
			e := NewEngine(DefaultQuantityScale)
			acct := newAccount()

			_, err := e.EnterPosition(&acct, tc.side, "ABC", d(tc.price), domain.Shares(d(tc.qty)))
			require.NoError(t, err)
			_, err = e.ExitPosition(&acct, tc.side, "ABC", d(tc.price), domain.Shares(d(tc.qty)))
			require.NoError(t, err)

			assert.True(t, acct.CashBalance.Equal(domain.DefaultInitialBalance), "got %s", acct.CashBalance)
			assert.Empty(t, acct.Positions)
		})
	}
}

func TestWeightedAverageIsOrderIndependent(t *testing.T) {
	entries := [][2]string{
		{"10.10", "3"},
		{"11.37", "7"},
		{"9.99", "1.5"},
	}
	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	var averages []decimal.Decimal
	for _, perm := range permutations {
		e := NewEngine(DefaultQuantityScale)
		acct := newAccount()
		for _, i := range perm {
			_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d(entries[i][0]), domain.Shares(d(entries[i][1])))
			require.NoError(t, err)
		}
		require.Len(t, acct.Positions, 1)
		averages = append(averages, acct.Positions[0].AveragePrice)
		assert.True(t, acct.Positions[0].Quantity.Equal(d("11.5")))
	}

	// (30.30 + 79.59 + 14.985) / 11.5
	expected := d("124.875").DivRound(d("11.5"), PriceScale)
	for _, avg := range averages {
		assert.True(t, avg.Equal(expected), "got %s want %s", avg, expected)
	}
}

func TestExitDoesNotChangeAverage(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("10"), domain.Shares(d("1")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideLong, "ABC", d("20"), domain.Shares(d("1")))
	require.NoError(t, err)

	_, err = e.ExitPosition(&acct, domain.SideLong, "ABC", d("50"), domain.Shares(d("1")))
	require.NoError(t, err)
	assert.True(t, acct.Positions[0].AveragePrice.Equal(d("15")))

	_, err = e.EnterPosition(&acct, domain.SideLong, "ABC", d("25"), domain.Shares(d("1")))
	require.NoError(t, err)
	assert.True(t, acct.Positions[0].AveragePrice.Equal(d("20")))
}

func TestLiquidateAll(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideShort, "XYZ", d("50"), domain.Shares(d("10")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideLong, "XYZ", d("50"), domain.Shares(d("2")))
	require.NoError(t, err)
	cashBefore := acct.CashBalance

	report := e.LiquidateAll(&acct, priceTable(map[string]string{"ABC": "110", "XYZ": "40"}))

	assert.True(t, report.Complete())
	require.Len(t, report.Closed, 3)
	assert.Equal(t, "ABC", report.Closed[0].Symbol)
	assert.Equal(t, domain.SideShort, report.Closed[1].Side)
	assert.Empty(t, acct.Positions)

	// 10*110 + 10*(2*50-40) + 2*40
	expected := d("1100").Add(d("600")).Add(d("80"))
	assert.True(t, report.Proceeds.Equal(expected))
	assert.True(t, acct.CashBalance.Equal(cashBefore.Add(expected)))
}

func TestLiquidateAll_ContinuesPastUnpriceable(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideLong, "GONE", d("10"), domain.Shares(d("10")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideLong, "ZERO", d("10"), domain.Shares(d("1")))
	require.NoError(t, err)

	report := e.LiquidateAll(&acct, priceTable(map[string]string{"ABC": "100", "ZERO": "0"}))

	assert.False(t, report.Complete())
	require.Len(t, report.Closed, 1)
	require.Len(t, report.Failed, 2)
	for _, f := range report.Failed {
		assert.True(t, errors.Is(f.Err, domain.ErrPriceUnavailable))
	}
	assert.Equal(t, "GONE", report.Failed[0].Symbol)
	assert.Len(t, acct.Positions, 2)
	assert.True(t, acct.CashBalance.Equal(d("9890")))
}

func TestValuate(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)
	_, err = e.EnterPosition(&acct, domain.SideShort, "XYZ", d("50"), domain.Shares(d("10")))
	require.NoError(t, err)

	v, err := e.Valuate(acct, priceTable(map[string]string{"ABC": "120", "XYZ": "60"}), domain.DefaultInitialBalance)
	require.NoError(t, err)

	assert.True(t, v.CashBalance.Equal(d("8500")))
	require.Len(t, v.Positions, 2)

	long := v.Positions[0]
	assert.True(t, long.CurrentWorth.Equal(d("1200")))
	assert.True(t, long.Profit.Equal(d("200")))
	assert.True(t, long.ProfitPercent.Equal(d("20")))
	assert.False(t, long.Stale)

	short := v.Positions[1]
	assert.True(t, short.CurrentWorth.Equal(d("400")))
	assert.True(t, short.Profit.Equal(d("-100")))
	assert.True(t, short.ProfitPercent.Equal(d("-20")))
	assert.True(t, short.MarketValue.Equal(d("600")))

	assert.True(t, v.TotalWorth.Equal(d("10100")))
	assert.True(t, v.TotalProfit.Equal(d("100")))
	assert.True(t, v.TotalProfitPercent.Equal(d("1")))
}

func TestValuate_PriceUnavailable(t *testing.T) {
	e := NewEngine(DefaultQuantityScale)
	acct := newAccount()
	_, err := e.EnterPosition(&acct, domain.SideLong, "ABC", d("100"), domain.Shares(d("10")))
	require.NoError(t, err)

	_, err = e.Valuate(acct, priceTable(nil), domain.DefaultInitialBalance)
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)

	v := e.ValuateLenient(acct, priceTable(nil), domain.DefaultInitialBalance)
	require.Len(t, v.Positions, 1)
	assert.True(t, v.Positions[0].Stale)
	assert.True(t, v.TotalWorth.Equal(domain.DefaultInitialBalance))
}
