package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wantTransfer struct {
	from, to ParticipantID
	amount   string
}

func requireTransfers(t *testing.T, want []wantTransfer, got []Transfer) {
	t.Helper()
	require.Len(t, got, len(want), "transfers: %+v", got)
	for i, w := range want {
		assert.Equal(t, w.from, got[i].From, "transfer %d from", i)
		assert.Equal(t, w.to, got[i].To, "transfer %d to", i)
		assert.True(t, got[i].Amount.Equal(amt(w.amount)), "transfer %d amount: want %s, got %s", i, w.amount, got[i].Amount)
	}
}

func TestSimplify_OneCreditorTwoDebtors(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("100"), bob: amt("-60"), carol: amt("-40")})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{
		{bob, alice, "60"},
		{carol, alice, "40"},
	}, got)
}

func TestSimplify_TiedCreditorsOrderedByID(t *testing.T) {
	// alice and bob are owed exactly the same; the lower ID is paid first.
	got, err := Simplify(Balance{bob: amt("50"), alice: amt("50"), carol: amt("-100")})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{
		{carol, alice, "50"},
		{carol, bob, "50"},
	}, got)
}

func TestSimplify_TiedDebtorsOrderedByID(t *testing.T) {
	got, err := Simplify(Balance{dave: amt("-30"), carol: amt("-30"), alice: amt("60")})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{
		{carol, alice, "30"},
		{dave, alice, "30"},
	}, got)
}

func TestSimplify_FromExpenses(t *testing.T) {
	balances := Aggregate([]Expense{{
		PayerID: alice,
		Amount:  amt("30"),
		Splits:  []Split{{ParticipantID: alice, Amount: amt("15")}, {ParticipantID: bob, Amount: amt("15")}},
	}})
	got, err := Simplify(balances)
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{{bob, alice, "15"}}, got)
}

func TestSimplify_BelowEpsilonIsSettled(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("0.005"), bob: amt("-0.005")})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSimplify_ExactlyEpsilonIsSettled(t *testing.T) {
	for name, b := range map[string]Balance{
		"one cent each way": {alice: amt("0.01"), bob: amt("-0.01")},
		"cent against dust": {alice: amt("0.01"), bob: amt("-0.005"), carol: amt("-0.005")},
		"negative cent":     {alice: amt("-0.01"), bob: amt("0.005"), carol: amt("0.005")},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Simplify(b)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.True(t, b.Settled())
		})
	}
}

func TestSimplify_ExcludedCentLeavesNoUnbalance(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("0.01"), bob: amt("0.02"), carol: amt("-0.03")})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{{carol, bob, "0.02"}}, got)
}

func TestSimplify_UnbalancedByMoreThanEpsilon(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("10.02"), bob: amt("-10")})
	assert.Nil(t, got)
	require.ErrorIs(t, err, ErrUnbalancedLedger)

	var ue *UnbalancedError
	require.True(t, errors.As(err, &ue))
	assert.True(t, ue.Residual[alice].Equal(amt("0.02")))
}

func TestSimplify_JustAboveEpsilonTransfers(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("0.02"), bob: amt("-0.02")})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{{bob, alice, "0.02"}}, got)
}

func TestSimplify_TwoCentExpenseSplitEqually(t *testing.T) {
	splits, err := SplitEqually(amt("0.02"), []ParticipantID{alice, bob})
	require.NoError(t, err)
	balances := Aggregate([]Expense{{PayerID: alice, Amount: amt("0.02"), Splits: splits}})

	got, err := Simplify(balances)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSimplify_SettledInput(t *testing.T) {
	for name, b := range map[string]Balance{
		"nil":   nil,
		"empty": {},
		"zeros": {alice: decimal.Zero, bob: decimal.Zero},
		"dust":  {alice: amt("0.009"), bob: amt("-0.004"), carol: amt("-0.005")},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := Simplify(b)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSimplify_ExactMatchAdvancesBothCursors(t *testing.T) {
	got, err := Simplify(Balance{
		alice: amt("50"),
		bob:   amt("30"),
		carol: amt("-50"),
		dave:  amt("-30"),
	})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{
		{carol, alice, "50"},
		{dave, bob, "30"},
	}, got)
}

func TestSimplify_DebtorSpreadAcrossCreditors(t *testing.T) {
	got, err := Simplify(Balance{
		alice: amt("70"),
		bob:   amt("20"),
		carol: amt("10"),
		dave:  amt("-100"),
	})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{
		{dave, alice, "70"},
		{dave, bob, "20"},
		{dave, carol, "10"},
	}, got)
}

func TestSimplify_RoundsOnlyAtEmission(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("10.005"), bob: amt("-10.005")})
	require.NoError(t, err)
	requireTransfers(t, []wantTransfer{{bob, alice, "10.01"}}, got)
}

func TestSimplify_ThirdsDoNotLeaveResidue(t *testing.T) {
	third := amt("100").Div(amt("3"))
	b := Balance{
		alice: amt("100"),
		bob:   third.Neg(),
		carol: third.Neg(),
		dave:  amt("-100").Add(third.Mul(amt("2"))),
	}
	got, err := Simplify(b)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, tr := range got {
		assert.True(t, tr.Amount.Equal(amt("33.33")), "amount %s", tr.Amount)
	}
}

func TestSimplify_Unbalanced(t *testing.T) {
	got, err := Simplify(Balance{alice: amt("100"), bob: amt("-60")})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrUnbalancedLedger))

	var ue *UnbalancedError
	require.True(t, errors.As(err, &ue))
	require.Len(t, ue.Residual, 1)
	assert.True(t, ue.Residual[alice].Equal(amt("40")))
	assert.Contains(t, err.Error(), "1=40")
}

func TestSimplify_OnlyDebtors(t *testing.T) {
	_, err := Simplify(Balance{alice: amt("-5"), bob: amt("-5")})
	assert.ErrorIs(t, err, ErrUnbalancedLedger)
}

func TestSimplify_DoesNotMutateInput(t *testing.T) {
	b := Balance{alice: amt("100"), bob: amt("-60"), carol: amt("-40")}
	snapshot := b.Clone()

	_, err := Simplify(b)
	require.NoError(t, err)
	for id, v := range snapshot {
		assert.True(t, b[id].Equal(v), "participant %s changed", id)
	}
}

func TestSimplify_Deterministic(t *testing.T) {
	ids := []ParticipantID{1, 2, 3, 4, 5, 6}
	amounts := []string{"25", "25", "-10", "-10", "-15", "-15"}

	first, err := Simplify(buildBalance(ids, amounts))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		perm := rng.Perm(len(ids))
		pids := make([]ParticipantID, len(ids))
		pamounts := make([]string, len(ids))
		for j, p := range perm {
			pids[j], pamounts[j] = ids[p], amounts[p]
		}
		got, err := Simplify(buildBalance(pids, pamounts))
		require.NoError(t, err)
		require.Equal(t, len(first), len(got))
		for k := range first {
			assert.Equal(t, first[k].From, got[k].From)
			assert.Equal(t, first[k].To, got[k].To)
			assert.True(t, first[k].Amount.Equal(got[k].Amount))
		}
	}
}

func buildBalance(ids []ParticipantID, amounts []string) Balance {
	b := make(Balance, len(ids))
	for i, id := range ids {
		b[id] = amt(amounts[i])
	}
	return b
}

// Random ledgers of whole-cent expenses split equally: the aggregation sums to
// zero and the emitted transfers clear every balance.
func TestAggregateSimplify_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 2 + rng.Intn(7)
		members := make([]ParticipantID, n)
		for i := range members {
			members[i] = ParticipantID(i + 1)
		}

		count := 1 + rng.Intn(20)
		var expenses []Expense
		for e := 0; e < count; e++ {
			var between []ParticipantID
			for _, id := range members {
				if rng.Intn(2) == 0 {
					between = append(between, id)
				}
			}
			if len(between) == 0 {
				between = members[:1]
			}
			total := FromMinorUnits(int64(1 + rng.Intn(100000)))
			splits, err := SplitEqually(total, between)
			require.NoError(t, err)
			expenses = append(expenses, Expense{
				PayerID: members[rng.Intn(n)],
				Amount:  total,
				Splits:  splits,
			})
		}

		balances := Aggregate(expenses)
		require.True(t, IsSettled(balances.Sum()), "round %d: sum %s", round, balances.Sum())

		transfers, err := Simplify(balances)
		require.NoError(t, err, "round %d", round)
		assert.LessOrEqual(t, len(transfers), n-1, "round %d", round)
		for _, tr := range transfers {
			assert.NotEqual(t, tr.From, tr.To)
			assert.True(t, tr.Amount.IsPositive())
		}
		// Cents left out of the matching end up on the last matched participant.
		dust := decimal.Zero
		for _, v := range balances {
			if IsNegligible(v) {
				dust = dust.Add(v.Abs())
			}
		}
		for id, v := range balances.Apply(transfers) {
			assert.True(t, v.Abs().LessThanOrEqual(dust.Add(Epsilon)), "round %d: %s left %s", round, id, v)
		}

		again, err := Simplify(balances)
		require.NoError(t, err)
		assert.Equal(t, len(transfers), len(again))
	}
}
