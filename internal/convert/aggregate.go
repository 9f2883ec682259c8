package convert

import (
	"github.com/leapstack-labs/iamconv/internal/frame"
	"github.com/leapstack-labs/iamconv/internal/index"
)

// aggregated is one rule's outcome: the matched rows grouped over the
// remaining key columns with values summed, and the rule's output
// variable. The aggregated column itself is gone from the frame.
type aggregated struct {
	fr       *frame.Frame
	variable string
}

// aggregate applies the entry's rules for column col. Rows matching a
// rule's value set are collapsed per rule; rows covered by no rule are
// returned as the passthrough remainder and keep their raw value.
// Rules whose values never occur in the data produce nothing.
func aggregate(fr *frame.Frame, col string, rules []index.AggRule) ([]aggregated, *frame.Frame, error) {
	rest := make([]string, 0, len(fr.Columns())-1)
	for _, c := range fr.Columns() {
		if c != col {
			rest = append(rest, c)
		}
	}

	covered := map[string]bool{}
	var out []aggregated
	for _, rule := range rules {
		in := map[string]bool{}
		for _, v := range rule.Values {
			in[v] = true
			covered[v] = true
		}
		matched, err := fr.Filter(col, func(v string) bool { return in[v] })
		if err != nil {
			return nil, nil, err
		}
		if matched.Len() == 0 {
			continue
		}
		grouped, err := matched.GroupSumBy(rest)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, aggregated{fr: grouped, variable: rule.Variable})
	}

	remainder, err := fr.Filter(col, func(v string) bool { return !covered[v] })
	if err != nil {
		return nil, nil, err
	}
	return out, remainder, nil
}
