package report

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/athena2/fleeteval/pkg/core"
)

// Pairing accumulates every trial between two fleets. Scores are cost
// lost, so lower is better.
type Pairing struct {
	FleetA string  `json:"fleetA"`
	FleetB string  `json:"fleetB"`
	CostA  float64 `json:"costA"`
	CostB  float64 `json:"costB"`
	Trials int     `json:"trials"`
	TotalA float64 `json:"totalA"`
	TotalB float64 `json:"totalB"`
	WinsA  int     `json:"winsA"`
	WinsB  int     `json:"winsB"`
	Draws  int     `json:"draws"`

	scores []trialScore // ordered by trial
}

type trialScore struct {
	trial int
	a, b  float64
}

// Summary is the exported view of a finished pairing.
type Summary struct {
	FleetA string  `json:"fleetA"`
	FleetB string  `json:"fleetB"`
	Trials int     `json:"trials"`
	MeanA  float64 `json:"meanA"`
	MeanB  float64 `json:"meanB"`
	WinsA  int     `json:"winsA"`
	WinsB  int     `json:"winsB"`
	Draws  int     `json:"draws"`
	Winner string  `json:"winner,omitempty"`
	Margin float64 `json:"margin"`
}

// NewPairing starts an empty pairing.
func NewPairing(a, b core.FleetInfo) *Pairing {
	return &Pairing{FleetA: a.Name, FleetB: b.Name, CostA: a.Cost, CostB: b.Cost}
}

// Add folds one trial into the pairing. Totals are summed in trial order,
// so they do not depend on the order in which trials finish.
func (p *Pairing) Add(r core.MatchupResult) {
	i := sort.Search(len(p.scores), func(i int) bool { return p.scores[i].trial > r.Trial })
	p.scores = slices.Insert(p.scores, i, trialScore{trial: r.Trial, a: r.A.Score, b: r.B.Score})

	p.Trials++
	p.TotalA, p.TotalB = 0, 0
	for _, s := range p.scores {
		p.TotalA += s.a
		p.TotalB += s.b
	}

	switch winner, _ := r.Winner(); winner {
	case "":
		p.Draws++
	case r.A.Fleet:
		p.WinsA++
	default:
		p.WinsB++
	}
}

// MeanA is the mean score of fleet A, or 0 before any trial.
func (p *Pairing) MeanA() float64 {
	if p.Trials == 0 {
		return 0
	}
	return p.TotalA / float64(p.Trials)
}

// MeanB is the mean score of fleet B, or 0 before any trial.
func (p *Pairing) MeanB() float64 {
	if p.Trials == 0 {
		return 0
	}
	return p.TotalB / float64(p.Trials)
}

// Winner compares the mean scores.
func (p *Pairing) Winner() (string, float64) {
	return core.Winner(p.FleetA, p.MeanA(), p.FleetB, p.MeanB())
}

// Summary returns the exported view.
func (p *Pairing) Summary() Summary {
	winner, margin := p.Winner()
	return Summary{
		FleetA: p.FleetA,
		FleetB: p.FleetB,
		Trials: p.Trials,
		MeanA:  p.MeanA(),
		MeanB:  p.MeanB(),
		WinsA:  p.WinsA,
		WinsB:  p.WinsB,
		Draws:  p.Draws,
		Winner: winner,
		Margin: margin,
	}
}

// Line formats the pairing as
// "A vs B: A: -sa, B: -sb; A wins by d" or "...; draw".
// With withCost each loss is followed by the fleet cost ("-sa/cost").
func (p *Pairing) Line(withCost bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s vs %s: %s: %s, %s: %s",
		p.FleetA, p.FleetB,
		p.FleetA, loss(p.MeanA(), p.CostA, withCost),
		p.FleetB, loss(p.MeanB(), p.CostB, withCost))

	if winner, margin := p.Winner(); winner == "" {
		sb.WriteString("; draw")
	} else {
		fmt.Fprintf(&sb, "; %s wins by %s", winner, num(margin))
	}
	return sb.String()
}

func loss(score, cost float64, withCost bool) string {
	s := num(-score)
	if withCost {
		s += "/" + num(cost)
	}
	return s
}

// num formats like a default C++ ostream: six significant digits.
func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

type pairKey struct{ a, b string }

// Table collects pairings in the order they were declared. It is safe
// for concurrent use.
type Table struct {
	mu       sync.Mutex
	order    []*Pairing
	pairings map[pairKey]*Pairing
}

// NewTable declares every unordered pair of fleets, in index order.
func NewTable(fleets []core.FleetInfo) *Table {
	t := &Table{pairings: make(map[pairKey]*Pairing)}
	for i := 0; i < len(fleets); i++ {
		for j := i + 1; j < len(fleets); j++ {
			p := NewPairing(fleets[i], fleets[j])
			t.order = append(t.order, p)
			t.pairings[pairKey{p.FleetA, p.FleetB}] = p
		}
	}
	return t
}

// Add records a trial result. Results for undeclared pairs are ignored
// and reported as false.
func (t *Table) Add(r core.MatchupResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pairings[pairKey{r.A.Fleet, r.B.Fleet}]
	if !ok {
		return false
	}
	p.Add(r)
	return true
}

// Summaries returns every pairing in declaration order.
func (t *Table) Summaries() []Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Summary, len(t.order))
	for i, p := range t.order {
		out[i] = p.Summary()
	}
	return out
}

// Write prints one line per pairing in declaration order.
func (t *Table) Write(w io.Writer, withCost bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.order {
		if _, err := fmt.Fprintln(w, p.Line(withCost)); err != nil {
			return err
		}
	}
	return nil
}
