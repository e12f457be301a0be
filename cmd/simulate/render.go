package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"zhajinhua/internal/app/export"
	"zhajinhua/internal/orchestrator"
	"zhajinhua/internal/storage/sqlite"
	"zhajinhua/internal/table"

	"github.com/pterm/pterm"
)

// streamPrinter writes agent reasoning to the terminal as it is produced.
type streamPrinter struct {
	mu    sync.Mutex
	out   io.Writer
	names map[string]string
	open  bool
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{out: out, names: make(map[string]string)}
}

// seat refreshes the display names after the table re-seats.
func (p *streamPrinter) seat(t *table.Table) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, pl := range t.Engine.Players() {
		p.names[pl.ID] = pl.Name
	}
}

func (p *streamPrinter) callbacks() orchestrator.Callbacks {
	return orchestrator.Callbacks{
		Mode:    orchestrator.Immediate,
		OnStart: p.start,
		OnChunk: p.chunk,
	}
}

func (p *streamPrinter) start(ev orchestrator.StreamEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.out)
	}
	name := p.names[ev.PlayerID]
	if name == "" {
		name = ev.PlayerID
	}
	_, err := fmt.Fprintf(p.out, "%s %s ", pterm.LightCyan(name), pterm.Gray("("+ev.Kind+")"))
	p.open = true
	return err
}

func (p *streamPrinter) chunk(ev orchestrator.StreamEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprint(p.out, ev.Text)
	return err
}

// finish closes the open line, if any.
func (p *streamPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.out)
		p.open = false
	}
}

// summaryTable lays out one finished game for pterm.
func summaryTable(s export.Summary) pterm.TableData {
	data := pterm.TableData{{"Player", "Name", "Chips", "Alive", "Experience", "Cheats", "Landed", "Mind games"}}
	for _, p := range s.Players {
		name := p.Name
		if p.ID == s.WinnerID {
			name = pterm.LightGreen(name + " *")
		}
		data = append(data, []string{
			p.ID,
			name,
			strconv.FormatInt(p.Chips, 10),
			strconv.FormatBool(p.Alive),
			strconv.FormatFloat(p.Experience, 'f', 0, 64),
			strconv.Itoa(p.CheatStats.Attempts),
			strconv.Itoa(p.CheatStats.Successes),
			strconv.Itoa(p.CheatStats.MindgameMoves),
		})
	}
	return data
}

// archiveTable lists stored games, newest first.
func archiveTable(records []sqlite.GameRecord) pterm.TableData {
	data := pterm.TableData{{"Game", "Winner", "Final pot", "Rounds", "Closed"}}
	for _, r := range records {
		data = append(data, []string{
			r.GameID,
			r.WinnerID,
			strconv.FormatInt(r.FinalPot, 10),
			strconv.Itoa(r.TotalRounds),
			r.ClosedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return data
}
