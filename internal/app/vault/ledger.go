// Package vault runs the in-game credit system: loans backed by hand-strength
// collateral, settlement at hand boundaries and pressure snapshots.
package vault

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"zhajinhua/internal/app/eventlog"
	"zhajinhua/internal/config"
	"zhajinhua/internal/domain"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrExperienceTooLow       = errors.New("experience below loan threshold")
	ErrInsufficientCollateral = errors.New("collateral does not cover the loan")
	ErrLoanOutstanding        = errors.New("player already has an outstanding loan")
	ErrInvalidAmount          = errors.New("loan amount must be positive")
	ErrLoanLimitExceeded      = errors.New("loan exceeds the player's limit")
)

// EconomicError reports why a loan was refused. No state changes when it is returned.
type EconomicError struct {
	PlayerID  string
	Requested int64
	Err       error
}

func (e *EconomicError) Error() string {
	return fmt.Sprintf("loan of %d for %s refused: %v", e.Requested, e.PlayerID, e.Err)
}

func (e *EconomicError) Unwrap() error { return e.Err }

// Request is a loan application.
type Request struct {
	Amount    int64 `json:"amount"`
	TermHands int   `json:"term_hands,omitempty"` // zero means the default term
}

// SettlementKind names the result of settling a due loan.
type SettlementKind string

const (
	SettlementRepaid    SettlementKind = "repaid"
	SettlementDefaulted SettlementKind = "defaulted"
)

// Settlement is one loan closed at a hand boundary.
type Settlement struct {
	Loan   domain.LoanRecord
	Kind   SettlementKind
	Amount int64 // chips paid back or seized
}

// Ledger owns the loan book of one game.
type Ledger struct {
	cfg    config.VaultConfig
	log    *eventlog.Log
	logger runtime.Logger

	loans     []*domain.LoanRecord
	issued    int64
	recovered int64
}

// NewLedger builds a ledger that records its events into log.
func NewLedger(cfg config.VaultConfig, log *eventlog.Log, logger runtime.Logger) *Ledger {
	return &Ledger{cfg: cfg, log: log, logger: logger}
}

// Limit returns the largest principal a player may borrow at the given experience.
func (l *Ledger) Limit(experience float64) int64 {
	bonus := int64(experience * l.cfg.LimitPerExperience)
	if bonus > l.cfg.MaxLimitBonus {
		bonus = l.cfg.MaxLimitBonus
	}
	return l.cfg.BaseLimit + bonus
}

// InterestRate prices a loan; experienced borrowers pay less.
func (l *Ledger) InterestRate(experience float64) float64 {
	exp := math.Min(experience, l.cfg.InterestExperienceCap)
	rate := l.cfg.BaseInterest + math.Max(0, l.cfg.InterestSlope-exp/l.cfg.InterestDivisor)
	return math.Min(l.cfg.MaxInterest, rate)
}

// CollateralValue values the player's current hand, capped at the configured share of the stack.
func (l *Ledger) CollateralValue(p *domain.Player) int64 {
	strength := domain.Evaluate(p.Cards()).Strength()
	return int64(math.Floor(float64(p.Chips) * l.cfg.MaxCollateralFraction * strength))
}

func (l *Ledger) term(requested int) int {
	if requested == 0 {
		requested = l.cfg.DefaultTermHands
	}
	if requested < l.cfg.MinTermHands {
		return l.cfg.MinTermHands
	}
	if requested > l.cfg.MaxTermHands {
		return l.cfg.MaxTermHands
	}
	return requested
}

// RequestLoan validates and issues a loan, crediting the borrower's stack.
func (l *Ledger) RequestLoan(p *domain.Player, req Request, handCount int) (*domain.LoanRecord, []eventlog.Entry, error) {
	refuse := func(err error) (*domain.LoanRecord, []eventlog.Entry, error) {
		return nil, nil, &EconomicError{PlayerID: p.ID, Requested: req.Amount, Err: err}
	}

	if req.Amount <= 0 {
		return refuse(ErrInvalidAmount)
	}
	if p.Experience < l.cfg.MinExperience {
		return refuse(ErrExperienceTooLow)
	}
	if p.OutstandingLoan() != nil {
		return refuse(ErrLoanOutstanding)
	}
	if req.Amount > l.Limit(p.Experience) {
		return refuse(ErrLoanLimitExceeded)
	}
	collateral := l.CollateralValue(p)
	if float64(collateral) < float64(req.Amount)*l.cfg.CollateralRatio {
		return refuse(ErrInsufficientCollateral)
	}

	rate := l.InterestRate(p.Experience)
	term := l.term(req.TermHands)
	loan := &domain.LoanRecord{
		ID:              uuid.NewString(),
		BorrowerID:      p.ID,
		Principal:       req.Amount,
		InterestRate:    rate,
		DueAmount:       int64(math.Ceil(float64(req.Amount) * (1 + rate))),
		CollateralValue: collateral,
		IssuedHand:      handCount,
		DueHand:         handCount + term,
	}
	p.Loans[loan.ID] = loan
	p.Chips += req.Amount
	l.loans = append(l.loans, loan)
	l.issued += req.Amount

	entry := l.log.Append(eventlog.Entry{
		Category:  eventlog.CategoryPublic,
		Kind:      "loan_issued",
		HandCount: handCount,
		PlayerID:  p.ID,
		Message:   fmt.Sprintf("%s borrows %d, owes %d by hand %d", p.Name, loan.Principal, loan.DueAmount, loan.DueHand),
		Fields: map[string]any{
			"loan_id":    loan.ID,
			"principal":  loan.Principal,
			"due_amount": loan.DueAmount,
			"due_hand":   loan.DueHand,
			"collateral": loan.CollateralValue,
			"rate":       loan.InterestRate,
		},
	})
	l.logger.Info("RequestLoan: %s borrowed %d at %.2f due hand %d", p.ID, loan.Principal, rate, loan.DueHand)
	return loan, []eventlog.Entry{entry}, nil
}

// SettleAtHandBoundary closes every loan that is due by handCount. Borrowers who
// can pay are charged the due amount; the rest lose their collateral.
func (l *Ledger) SettleAtHandBoundary(players []*domain.Player, handCount int) ([]Settlement, []eventlog.Entry) {
	var settlements []Settlement
	var entries []eventlog.Entry
	for _, p := range players {
		for _, loan := range sortedLoans(p) {
			if !loan.Outstanding() || handCount < loan.DueHand {
				continue
			}
			if p.Chips >= loan.DueAmount {
				p.Chips -= loan.DueAmount
				loan.Repaid = true
				l.recovered += loan.DueAmount
				settlements = append(settlements, Settlement{Loan: *loan, Kind: SettlementRepaid, Amount: loan.DueAmount})
				entries = append(entries, l.log.Append(eventlog.Entry{
					Category:  eventlog.CategoryPublic,
					Kind:      "loan_repaid",
					HandCount: handCount,
					PlayerID:  p.ID,
					Message:   fmt.Sprintf("%s repays %d to the vault", p.Name, loan.DueAmount),
					Fields:    map[string]any{"loan_id": loan.ID, "amount": loan.DueAmount},
				}))
				continue
			}

			seized := loan.CollateralValue
			if seized > p.Chips {
				seized = p.Chips
			}
			p.Chips -= seized
			loan.Defaulted = true
			loan.Seized = seized
			l.recovered += seized
			settlements = append(settlements, Settlement{Loan: *loan, Kind: SettlementDefaulted, Amount: seized})
			entries = append(entries, l.log.Append(eventlog.Entry{
				Category:  eventlog.CategoryCheat,
				Kind:      "loan_defaulted",
				HandCount: handCount,
				PlayerID:  p.ID,
				Message:   fmt.Sprintf("%s defaults on %d; vault seizes %d", p.Name, loan.DueAmount, seized),
				Fields: map[string]any{
					"loan_id":    loan.ID,
					"due_amount": loan.DueAmount,
					"seized":     seized,
				},
			}))
			l.logger.Warn("SettleAtHandBoundary: %s defaulted on loan %s, seized %d", p.ID, loan.ID, seized)
		}
	}
	return settlements, entries
}

// sortedLoans keeps settlement order stable across map iteration.
func sortedLoans(p *domain.Player) []*domain.LoanRecord {
	out := make([]*domain.LoanRecord, 0, len(p.Loans))
	for _, loan := range p.Loans {
		out = append(out, loan)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedHand != out[j].IssuedHand {
			return out[i].IssuedHand < out[j].IssuedHand
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Loans returns copies of every loan issued this game.
func (l *Ledger) Loans() []domain.LoanRecord {
	out := make([]domain.LoanRecord, len(l.loans))
	for i, loan := range l.loans {
		out[i] = *loan
	}
	return out
}

// Balance returns chips lent and chips recovered so far.
func (l *Ledger) Balance() (issued, recovered int64) {
	return l.issued, l.recovered
}

// Reset clears the in-flight loan list.
func (l *Ledger) Reset() {
	l.loans = nil
	l.issued = 0
	l.recovered = 0
}
