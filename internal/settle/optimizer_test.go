package settle

import (
	"reflect"
	"testing"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
)

func owes(debtor, creditor string, cents int64) models.Obligation {
	return models.Obligation{
		Debtor:   models.MemberByID(debtor),
		Creditor: models.MemberByID(creditor),
		Amount:   money.FromCents(cents),
	}
}

func TestBalances(t *testing.T) {
	tests := []struct {
		name        string
		obligations []models.Obligation
		want        map[string]int64
	}{
		{
			name:        "no obligations",
			obligations: nil,
			want:        map[string]int64{},
		},
		{
			name: "sums per member and drops zeros",
			obligations: []models.Obligation{
				owes("alice", "bob", 3000),
				owes("bob", "carol", 3000),
			},
			want: map[string]int64{"id:alice": -3000, "id:carol": 3000},
		},
		{
			name: "multiple obligations accumulate",
			obligations: []models.Obligation{
				owes("alice", "bob", 1000),
				owes("alice", "bob", 500),
				owes("carol", "bob", 200),
			},
			want: map[string]int64{"id:alice": -1500, "id:bob": 1700, "id:carol": -200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances := Balances(tt.obligations)
			if len(balances) != len(tt.want) {
				t.Fatalf("got %d balances, want %d: %v", len(balances), len(tt.want), balances)
			}
			var sum int64
			for _, b := range balances {
				if got := b.Amount.Cents; got != tt.want[b.Member.Key()] {
					t.Errorf("balance[%s] = %d, want %d", b.Member.Key(), got, tt.want[b.Member.Key()])
				}
				sum += b.Amount.Cents
			}
			if sum != 0 {
				t.Errorf("balances sum to %d, want 0", sum)
			}
		})
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name         string
		obligations  []models.Obligation
		maxTransfers int
		validateFunc func(t *testing.T, plan models.TransferPlan)
	}{
		{
			name:         "nothing to settle yields empty plan",
			obligations:  nil,
			maxTransfers: 0,
			validateFunc: func(t *testing.T, plan models.TransferPlan) {
				if !plan.Empty() {
					t.Errorf("plan = %v, want empty", plan.Entries)
				}
			},
		},
		{
			name: "transitive debt collapses to one transfer",
			obligations: []models.Obligation{
				owes("alice", "bob", 3000),
				owes("bob", "carol", 3000),
			},
			maxTransfers: 2,
			validateFunc: func(t *testing.T, plan models.TransferPlan) {
				if len(plan.Entries) != 1 {
					t.Fatalf("got %d transfers, want 1", len(plan.Entries))
				}
				e := plan.Entries[0]
				if e.From.Key() != "id:alice" || e.To.Key() != "id:carol" || e.Amount.Cents != 3000 {
					t.Errorf("transfer = %s -> %s %d, want alice -> carol 3000", e.From.Key(), e.To.Key(), e.Amount.Cents)
				}
			},
		},
		{
			name: "mutual debts net out completely",
			obligations: []models.Obligation{
				owes("alice", "bob", 2500),
				owes("bob", "alice", 2500),
			},
			maxTransfers: 0,
			validateFunc: func(t *testing.T, plan models.TransferPlan) {
				if !plan.Empty() {
					t.Errorf("plan = %v, want empty", plan.Entries)
				}
			},
		},
		{
			name: "largest pair matched first",
			obligations: []models.Obligation{
				owes("alice", "dave", 7000),
				owes("bob", "dave", 1000),
				owes("carol", "dave", 500),
			},
			maxTransfers: 3,
			validateFunc: func(t *testing.T, plan models.TransferPlan) {
				if len(plan.Entries) != 3 {
					t.Fatalf("got %d transfers, want 3", len(plan.Entries))
				}
				first := plan.Entries[0]
				if first.From.Key() != "id:alice" || first.Amount.Cents != 7000 {
					t.Errorf("first transfer = %s %d, want alice 7000", first.From.Key(), first.Amount.Cents)
				}
			},
		},
		{
			name: "ties break toward smaller member key",
			obligations: []models.Obligation{
				owes("bob", "carol", 1000),
				owes("alice", "carol", 1000),
			},
			maxTransfers: 2,
			validateFunc: func(t *testing.T, plan models.TransferPlan) {
				if len(plan.Entries) != 2 {
					t.Fatalf("got %d transfers, want 2", len(plan.Entries))
				}
				if plan.Entries[0].From.Key() != "id:alice" {
					t.Errorf("first debtor = %s, want alice", plan.Entries[0].From.Key())
				}
				if plan.Entries[1].From.Key() != "id:bob" {
					t.Errorf("second debtor = %s, want bob", plan.Entries[1].From.Key())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan("g1", tt.obligations)

			members := make(map[string]bool)
			for _, b := range Balances(tt.obligations) {
				members[b.Member.Key()] = true
			}
			if tt.maxTransfers > 0 && len(plan.Entries) > len(members)-1 {
				t.Errorf("plan has %d transfers for %d members, want at most %d", len(plan.Entries), len(members), len(members)-1)
			}
			if len(plan.Entries) > tt.maxTransfers {
				t.Errorf("got %d transfers, want at most %d", len(plan.Entries), tt.maxTransfers)
			}

			// Applying the plan must clear every balance exactly.
			residual := make(map[string]int64)
			for _, b := range Balances(tt.obligations) {
				residual[b.Member.Key()] = b.Amount.Cents
			}
			for _, e := range plan.Entries {
				if !e.Amount.IsPositive() {
					t.Errorf("transfer %s -> %s has non-positive amount %d", e.From.Key(), e.To.Key(), e.Amount.Cents)
				}
				residual[e.From.Key()] += e.Amount.Cents
				residual[e.To.Key()] -= e.Amount.Cents
			}
			for key, cents := range residual {
				if cents != 0 {
					t.Errorf("residual balance for %s = %d, want 0", key, cents)
				}
			}

			if tt.validateFunc != nil {
				tt.validateFunc(t, plan)
			}
		})
	}
}

func TestPlanDeterministic(t *testing.T) {
	obligations := []models.Obligation{
		owes("alice", "dave", 3000),
		owes("bob", "dave", 3000),
		owes("carol", "eve", 3000),
		owes("alice", "eve", 1500),
	}
	first := Plan("g1", obligations)
	for i := 0; i < 10; i++ {
		if again := Plan("g1", obligations); !reflect.DeepEqual(first, again) {
			t.Fatalf("plan differs between runs:\n%v\n%v", first, again)
		}
	}
}
