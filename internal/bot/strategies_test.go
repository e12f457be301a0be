package bot

import (
	"math/rand"
	"testing"

	"zhajinhua/internal/app"
	"zhajinhua/internal/bot/brain"
	"zhajinhua/internal/domain"
	"zhajinhua/internal/ports"
)

func evalEquity(cards ...domain.Card) float64 {
	rank := domain.Evaluate(cards)
	return Equity(rank.Category.String(), rank.Strength())
}

func cardsOf(cards ...domain.Card) (out []string) {
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}

// looked builds a view of "me" holding cards against opponent "a".
func looked(toCall, pot int64, cards ...domain.Card) app.TableView {
	rank := domain.Evaluate(cards)
	v := app.TableView{
		Phase:  domain.PhaseBetting,
		Pot:    pot,
		ToCall: toCall,
		Seats: []app.SeatView{
			{ID: "me", Alive: true, Chips: 300, HasLooked: true},
			{ID: "a", Alive: true, Chips: 300},
		},
	}
	v.Self.SeatView = v.Seats[0]
	v.Self.Cards = cardsOf(cards...)
	v.Self.Category = rank.Category.String()
	v.Self.Strength = rank.Strength()
	v.Self.Legal = []domain.LegalAction{
		{Kind: domain.ActionFold},
		{Kind: domain.ActionCall, Cost: toCall},
		{Kind: domain.ActionRaise, MinAmount: 10, MaxAmount: 300 - toCall},
	}
	return v
}

var (
	seven  = domain.Card{Rank: 5, Suit: domain.SuitSpades}
	four   = domain.Card{Rank: 2, Suit: domain.SuitHearts}
	deuce  = domain.Card{Rank: domain.RankTwo, Suit: domain.SuitClubs}
	aceS   = domain.Card{Rank: domain.RankAce, Suit: domain.SuitSpades}
	aceH   = domain.Card{Rank: domain.RankAce, Suit: domain.SuitHearts}
	aceC   = domain.Card{Rank: domain.RankAce, Suit: domain.SuitClubs}
	kingD  = domain.Card{Rank: 11, Suit: domain.SuitDiamonds}
	nineH  = domain.Card{Rank: 7, Suit: domain.SuitHearts}
)

func voteRequest(a, b string) ports.VoteRequest {
	return ports.VoteRequest{
		PlayerID: "me",
		Accuser:  "x",
		Targets:  [2]string{a, b},
		Defenses: map[string]string{a: "not me", b: "not me either"},
	}
}

func TestEquityFollowsHandOrder(t *testing.T) {
	hands := [][]domain.Card{
		{seven, four, deuce},
		{aceS, kingD, nineH},
		{aceS, aceH, kingD},
		{aceS, aceH, aceC},
	}
	prev := -1.0
	for i, h := range hands {
		eq := evalEquity(h...)
		if eq <= prev || eq > 1 {
			t.Fatalf("hand %d equity %.3f, previous %.3f", i, eq, prev)
		}
		prev = eq
	}
	if got := Equity("nonsense", 0.5); got != 0 {
		t.Fatalf("unknown category equity = %v, want 0", got)
	}
}

func TestHeuristicBotLooksBeforeBetting(t *testing.T) {
	v := looked(10, 20, seven, four, deuce)
	v.Seats[0].HasLooked = false
	v.Self.SeatView.HasLooked = false
	v.Self.Cards, v.Self.Category, v.Self.Strength = nil, "", 0
	v.Self.Legal = append(v.Self.Legal, domain.LegalAction{Kind: domain.ActionLook})

	b := &HeuristicBot{Tuning: levelTuning[BotLevelCautious]}
	th := b.Decide(v, brain.NewMemory(), Persona{Style: StyleSteady}, rand.New(rand.NewSource(42)))
	if th.Decision.Action.Kind != domain.ActionLook {
		t.Fatalf("action = %s, want look", th.Decision.Action.Kind)
	}
}

func TestHeuristicBotDecisions(t *testing.T) {
	tests := []struct {
		name  string
		level BotLevel
		style string
		view  app.TableView
		want  domain.ActionKind
	}{
		{"folds trash facing a big bet", BotLevelBalanced, StyleSteady, looked(100, 40, seven, four, deuce), domain.ActionFold},
		{"raises trips", BotLevelBalanced, StyleAggressive, looked(10, 30, aceS, aceH, aceC), domain.ActionRaise},
		{"calls a free pair", BotLevelCautious, StyleSteady, looked(0, 30, aceS, aceH, kingD), domain.ActionCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning := levelTuning[tt.level]
			tuning.BluffRate = 0
			b := &HeuristicBot{Tuning: tuning}
			for seed := int64(0); seed < 5; seed++ {
				th := b.Decide(tt.view, brain.NewMemory(), Persona{Style: tt.style}, rand.New(rand.NewSource(seed)))
				if th.Decision.Action.Kind != tt.want {
					t.Fatalf("seed %d: action = %s, want %s (%s)", seed, th.Decision.Action.Kind, tt.want, th.Decision.Reason)
				}
				if len(th.Reasoning) == 0 {
					t.Fatal("no reasoning produced")
				}
			}
		})
	}
}

func TestRaiseAmountStaysInBounds(t *testing.T) {
	v := looked(10, 30, aceS, aceH, aceC)
	v.Self.Legal[2].MaxAmount = 15
	b := &HeuristicBot{Tuning: levelTuning[BotLevelShark]}
	th := b.Decide(v, brain.NewMemory(), Persona{Style: StyleAggressive}, rand.New(rand.NewSource(1)))
	a := th.Decision.Action
	if a.Kind != domain.ActionRaise || a.Amount < 10 || a.Amount > 15 {
		t.Fatalf("action = %+v, want a raise between 10 and 15", a)
	}
}

func TestCompareTargetsWeakestOpponent(t *testing.T) {
	v := looked(10, 30, aceS, aceH, kingD)
	v.Seats = append(v.Seats, app.SeatView{ID: "b", Alive: true, Chips: 300})
	v.Self.Legal = append(v.Self.Legal, domain.LegalAction{Kind: domain.ActionCompare, Cost: 20, Targets: []string{"a", "b"}})

	mem := brain.NewMemory()
	strong := mem.Profile("a")
	strong.Looked, strong.HandRaises, strong.Calls = true, 2, 6
	mem.Profile("b")

	ctx := newDecisionContext(v, mem, Persona{}, levelTuning[BotLevelBalanced], rand.New(rand.NewSource(1)))
	(&HandStrengthRule{}).Apply(ctx)
	if ctx.CompareTarget != "b" {
		t.Fatalf("compare target = %q, want b", ctx.CompareTarget)
	}
	if _, ok := ctx.Scores[domain.ActionCompare]; !ok {
		t.Fatal("compare was not scored")
	}
}

func TestAccuseRulePicksMostSuspicious(t *testing.T) {
	v := looked(10, 30, seven, four, deuce)
	v.Self.Legal = append(v.Self.Legal, domain.LegalAction{Kind: domain.ActionAccuse, Cost: 20, Targets: []string{"a", "b", "c"}})

	mem := brain.NewMemory()
	for _, id := range []string{"a", "c"} {
		p := mem.Profile(id)
		p.Looked, p.HandRaises = true, 3
	}
	mem.Profile("b")

	ctx := newDecisionContext(v, mem, Persona{}, levelTuning[BotLevelShark], rand.New(rand.NewSource(1)))
	(&AccuseRule{}).Apply(ctx)
	if ctx.AccuseTargets != [2]string{"a", "c"} {
		t.Fatalf("accuse targets = %v, want [a c]", ctx.AccuseTargets)
	}
	if ctx.Best() != domain.ActionAccuse {
		t.Fatalf("best = %s, want accuse", ctx.Best())
	}
}

func TestSharkCheatsOnlyWhenTableIsCalm(t *testing.T) {
	tuning := levelTuning[BotLevelShark]
	tuning.CheatRate = 1
	tuning.MessageRate = 0
	b := &SharkBot{HeuristicBot: HeuristicBot{Tuning: tuning}}

	v := looked(10, 30, seven, four, deuce)
	th := b.Decide(v, brain.NewMemory(), Persona{}, rand.New(rand.NewSource(1)))
	want := domain.CheatMove{Kind: domain.CheatSwapRank, CardIndex: 2, NewRank: seven.Rank}
	if th.Decision.Cheat == nil || *th.Decision.Cheat != want {
		t.Fatalf("cheat = %+v, want %+v", th.Decision.Cheat, want)
	}

	v.AlertLevel = 60
	th = b.Decide(v, brain.NewMemory(), Persona{}, rand.New(rand.NewSource(1)))
	if th.Decision.Cheat != nil {
		t.Fatalf("cheat = %+v under high alert, want none", th.Decision.Cheat)
	}

	pair := looked(10, 30, aceS, aceH, kingD)
	th = b.Decide(pair, brain.NewMemory(), Persona{}, rand.New(rand.NewSource(1)))
	if th.Decision.Cheat != nil {
		t.Fatalf("cheat = %+v on a pair, want none", th.Decision.Cheat)
	}
}

func TestAuctionBidRespectsBudget(t *testing.T) {
	auction := func(chips int64) app.TableView {
		v := app.TableView{Auction: &app.AuctionView{MinBid: 75}}
		v.Auction.Item.Name, v.Auction.Item.Effect = "Second Wind", "revive"
		v.Self.Chips = chips
		v.Self.Legal = []domain.LegalAction{{Kind: domain.ActionPass}, {Kind: domain.ActionBid, MinAmount: 75, MaxAmount: chips}}
		return v
	}
	b := &HeuristicBot{Tuning: levelTuning[BotLevelBalanced]}
	rng := rand.New(rand.NewSource(1))

	if got := b.Decide(auction(300), brain.NewMemory(), Persona{}, rng).Decision.Action; got.Kind != domain.ActionPass {
		t.Fatalf("small stack action = %+v, want pass", got)
	}
	got := b.Decide(auction(1000), brain.NewMemory(), Persona{}, rng).Decision.Action
	if got.Kind != domain.ActionBid || got.Amount != 75 {
		t.Fatalf("big stack action = %+v, want bid 75", got)
	}
}

func TestVoteFollowsSuspicion(t *testing.T) {
	mem := brain.NewMemory()
	for _, id := range []string{"a", "b"} {
		p := mem.Profile(id)
		p.Looked, p.HandRaises = true, 3
	}
	b := &HeuristicBot{Tuning: levelTuning[BotLevelBalanced]}

	guilty, _ := b.Vote(voteRequest("a", "b"), mem, Persona{})
	if guilty.Verdict != domain.VerdictGuilty {
		t.Fatalf("verdict = %s, want guilty", guilty.Verdict)
	}
	clean, _ := b.Vote(voteRequest("c", "d"), mem, Persona{})
	if clean.Verdict != domain.VerdictNotGuilty {
		t.Fatalf("verdict = %s, want not_guilty", clean.Verdict)
	}
}
