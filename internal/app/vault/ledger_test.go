package vault

import (
	"errors"
	"math"
	"testing"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

func acesPlayer(chips int64, exp float64) *domain.Player {
	p := domain.NewPlayer("p1", "Ada", 0, chips)
	p.Experience = exp
	p.Hole = [3]domain.Card{{Rank: domain.RankAce, Suit: domain.SuitSpades}, {Rank: domain.RankAce, Suit: domain.SuitHearts}, {Rank: domain.RankAce, Suit: domain.SuitClubs}}
	return p
}

func weakPlayer(chips int64, exp float64) *domain.Player {
	p := domain.NewPlayer("p2", "Bo", 1, chips)
	p.Experience = exp
	p.Hole = [3]domain.Card{{Rank: 5, Suit: domain.SuitSpades}, {Rank: 2, Suit: domain.SuitHearts}, {Rank: 0, Suit: domain.SuitClubs}}
	return p
}

func newTestLedger() (*Ledger, *eventlog.Log) {
	log := eventlog.New()
	return NewLedger(config.Default().Vault, log, noopLogger{}), log
}

func TestRequestLoanExperienceTooLow(t *testing.T) {
	ledger, log := newTestLedger()
	p := acesPlayer(300, 10)

	loan, entries, err := ledger.RequestLoan(p, Request{Amount: 50}, 1)
	if !errors.Is(err, ErrExperienceTooLow) {
		t.Fatalf("RequestLoan() error = %v, want ErrExperienceTooLow", err)
	}
	var econ *EconomicError
	if !errors.As(err, &econ) || econ.PlayerID != "p1" {
		t.Fatalf("error is not an EconomicError: %v", err)
	}
	if loan != nil || entries != nil {
		t.Fatalf("refused loan returned data")
	}
	if p.Chips != 300 || len(p.Loans) != 0 || len(ledger.Loans()) != 0 || len(log.All()) != 0 {
		t.Fatalf("refused loan changed state: chips=%d loans=%d", p.Chips, len(p.Loans))
	}
}

func TestRequestLoanRefusals(t *testing.T) {
	tests := []struct {
		name   string
		player func() *domain.Player
		amount int64
		want   error
	}{
		{name: "weak hand cannot back a large loan", player: func() *domain.Player { return weakPlayer(300, 30) }, amount: 200, want: ErrInsufficientCollateral},
		{name: "zero amount", player: func() *domain.Player { return acesPlayer(300, 30) }, amount: 0, want: ErrInvalidAmount},
		{name: "above limit", player: func() *domain.Player { return acesPlayer(300, 20) }, amount: 2000, want: ErrLoanLimitExceeded},
		{name: "broke player has no collateral", player: func() *domain.Player { return acesPlayer(0, 30) }, amount: 10, want: ErrInsufficientCollateral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger()
			p := tt.player()
			before := p.Chips
			if _, _, err := ledger.RequestLoan(p, Request{Amount: tt.amount}, 1); !errors.Is(err, tt.want) {
				t.Fatalf("RequestLoan() error = %v, want %v", err, tt.want)
			}
			if p.Chips != before || len(p.Loans) != 0 {
				t.Fatalf("refused loan changed state")
			}
		})
	}
}

func TestRequestLoanIssues(t *testing.T) {
	ledger, log := newTestLedger()
	p := acesPlayer(300, 30)

	loan, entries, err := ledger.RequestLoan(p, Request{Amount: 200}, 4)
	if err != nil {
		t.Fatalf("RequestLoan() error = %v", err)
	}
	if p.Chips != 500 {
		t.Fatalf("chips = %d, want 500", p.Chips)
	}
	if math.Abs(loan.InterestRate-0.435) > 1e-9 {
		t.Fatalf("InterestRate = %v, want 0.435", loan.InterestRate)
	}
	if loan.DueAmount != 287 || loan.DueHand != 7 {
		t.Fatalf("due = %d at hand %d, want 287 at hand 7", loan.DueAmount, loan.DueHand)
	}
	if loan.CollateralValue > int64(0.5*300) {
		t.Fatalf("collateral %d exceeds configured fraction of stack", loan.CollateralValue)
	}
	if len(entries) != 1 || entries[0].Kind != "loan_issued" || log.Len(eventlog.CategoryPublic) != 1 {
		t.Fatalf("loan not logged: %+v", entries)
	}

	if _, _, err := ledger.RequestLoan(p, Request{Amount: 10}, 4); !errors.Is(err, ErrLoanOutstanding) {
		t.Fatalf("second loan error = %v, want ErrLoanOutstanding", err)
	}
}

func TestTermIsClamped(t *testing.T) {
	ledger, _ := newTestLedger()
	tests := []struct{ in, want int }{{0, 3}, {1, 2}, {4, 4}, {9, 6}}
	for _, tt := range tests {
		if got := ledger.term(tt.in); got != tt.want {
			t.Fatalf("term(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSettleAtHandBoundary(t *testing.T) {
	ledger, log := newTestLedger()
	payer := acesPlayer(300, 30)
	defaulter := acesPlayer(300, 30)
	defaulter.ID = "p3"

	payLoan, _, err := ledger.RequestLoan(payer, Request{Amount: 100, TermHands: 2}, 1)
	if err != nil {
		t.Fatalf("RequestLoan(payer) error = %v", err)
	}
	badLoan, _, err := ledger.RequestLoan(defaulter, Request{Amount: 100, TermHands: 2}, 1)
	if err != nil {
		t.Fatalf("RequestLoan(defaulter) error = %v", err)
	}
	defaulter.Chips = 60

	if settled, _ := ledger.SettleAtHandBoundary([]*domain.Player{payer, defaulter}, 2); len(settled) != 0 {
		t.Fatalf("loans settled before due hand: %+v", settled)
	}

	settled, entries := ledger.SettleAtHandBoundary([]*domain.Player{payer, defaulter}, 3)
	if len(settled) != 2 || len(entries) != 2 {
		t.Fatalf("settled %d loans, want 2", len(settled))
	}
	if !payLoan.Repaid || payer.Chips != 400-payLoan.DueAmount {
		t.Fatalf("payer not charged: repaid=%v chips=%d", payLoan.Repaid, payer.Chips)
	}
	wantSeized := badLoan.CollateralValue
	if wantSeized > 60 {
		wantSeized = 60
	}
	if !badLoan.Defaulted || badLoan.Seized != wantSeized || defaulter.Chips != 60-wantSeized {
		t.Fatalf("default not enforced: %+v chips=%d", badLoan, defaulter.Chips)
	}
	cheats := log.Entries(eventlog.CategoryCheat)
	if len(cheats) != 1 || cheats[0].Kind != "loan_defaulted" || cheats[0].PlayerID != "p3" {
		t.Fatalf("default not logged in cheat category: %+v", cheats)
	}

	if settled, _ := ledger.SettleAtHandBoundary([]*domain.Player{payer, defaulter}, 4); len(settled) != 0 {
		t.Fatalf("closed loans settled twice")
	}

	ledger.Reset()
	if len(ledger.Loans()) != 0 {
		t.Fatalf("Reset() kept loans")
	}
}

func TestComputePressureSnapshot(t *testing.T) {
	rich := domain.NewPlayer("a", "A", 0, 600)
	poor := domain.NewPlayer("b", "B", 1, 150)
	mid := domain.NewPlayer("c", "C", 2, 150)
	gone := domain.NewPlayer("d", "D", 3, 0)
	players := []*domain.Player{rich, poor, mid, gone}

	if got := ComputePressureSnapshot(rich, players); got.Value != 0 || got.ChipRatio != 2 {
		t.Fatalf("rich pressure = %+v", got)
	}
	got := ComputePressureSnapshot(poor, players)
	if math.Abs(got.ChipRatio-0.5) > 1e-9 || math.Abs(got.Value-0.5) > 1e-9 {
		t.Fatalf("poor pressure = %+v", got)
	}

	poor.Loans["l"] = &domain.LoanRecord{ID: "l", DueAmount: 150}
	withLoan := ComputePressureSnapshot(poor, players)
	if withLoan.Value <= got.Value || withLoan.LoanBurden != 0.5 {
		t.Fatalf("loan did not add pressure: %+v", withLoan)
	}
}
