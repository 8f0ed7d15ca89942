package store

import "fmt"

type stageKind int

const (
	stageMatch stageKind = iota
	stageSort
	stageSkip
	stageLimit
)

// Stage is one step of an aggregation pipeline.
type Stage struct {
	kind   stageKind
	filter Filter
	field  string
	desc   bool
	n      int64
}

// Pipeline is an ordered list of stages.
type Pipeline []Stage

func Match(f Filter) Stage { return Stage{kind: stageMatch, filter: f} }

// SortBy orders by a top level field. Ties keep insertion order.
func SortBy(field string, desc bool) Stage {
	return Stage{kind: stageSort, field: field, desc: desc}
}

func Skip(n int64) Stage  { return Stage{kind: stageSkip, n: n} }
func Limit(n int64) Stage { return Stage{kind: stageLimit, n: n} }

// plan is the normalized form of a pipeline: match, then sort, then
// skip and limit. Both backends execute plans, not raw stages.
type plan struct {
	filter  Filter
	sort    string
	desc    bool
	skip    int64
	limit   int64
	limited bool
}

// compile accepts pipelines of the form match* sort? skip? limit?.
func (p Pipeline) compile() (plan, error) {
	var (
		out     plan
		filters []Filter
		last    = stageMatch
	)
	for i, s := range p {
		if i > 0 && s.kind < last {
			return plan{}, fmt.Errorf("%w: stage %d out of order", ErrUnsupportedPipeline, i)
		}
		if i > 0 && s.kind == last && s.kind != stageMatch {
			return plan{}, fmt.Errorf("%w: repeated stage %d", ErrUnsupportedPipeline, i)
		}
		last = s.kind
		switch s.kind {
		case stageMatch:
			filters = append(filters, s.filter)
		case stageSort:
			if s.field == "" {
				return plan{}, fmt.Errorf("%w: empty sort field", ErrUnsupportedPipeline)
			}
			out.sort, out.desc = s.field, s.desc
		case stageSkip:
			if s.n < 0 {
				return plan{}, fmt.Errorf("%w: negative skip", ErrUnsupportedPipeline)
			}
			out.skip = s.n
		case stageLimit:
			if s.n < 0 {
				return plan{}, fmt.Errorf("%w: negative limit", ErrUnsupportedPipeline)
			}
			out.limit, out.limited = s.n, true
		}
	}
	switch len(filters) {
	case 0:
		out.filter = All()
	case 1:
		out.filter = filters[0]
	default:
		out.filter = And(filters...)
	}
	return out, nil
}
