package schemacheck

import (
	"fmt"
	"sort"
	"strconv"
)

// Mismatch is one disagreement between the declared and executable contracts.
type Mismatch struct {
	Check  string
	Detail string
}

func (m Mismatch) String() string {
	return m.Check + ": " + m.Detail
}

type Report struct {
	Mismatches []Mismatch
	Probes     int
}

func (r *Report) OK() bool { return len(r.Mismatches) == 0 }

func (r *Report) Messages() []string {
	out := make([]string, len(r.Mismatches))
	for i, m := range r.Mismatches {
		out[i] = m.String()
	}
	return out
}

func (r *Report) add(check, detail string) {
	r.Mismatches = append(r.Mismatches, Mismatch{Check: check, Detail: detail})
}

// compareSets reports members present on only one side. Order is ignored.
func (r *Report) compareSets(check string, declared, executable []string) {
	declaredSet := toSet(declared)
	executableSet := toSet(executable)

	var onlyDeclared, onlyExecutable []string
	for v := range declaredSet {
		if !executableSet[v] {
			onlyDeclared = append(onlyDeclared, v)
		}
	}
	for v := range executableSet {
		if !declaredSet[v] {
			onlyExecutable = append(onlyExecutable, v)
		}
	}
	if len(onlyDeclared) == 0 && len(onlyExecutable) == 0 {
		return
	}
	sort.Strings(onlyDeclared)
	sort.Strings(onlyExecutable)
	r.add(check, fmt.Sprintf("only declared [%s], only executable [%s]", describe(onlyDeclared), describe(onlyExecutable)))
}

func (r *Report) compareNumber(check string, declared float64, declaredOK bool, executable *float64) {
	switch {
	case !declaredOK && executable == nil:
		return
	case !declaredOK:
		r.add(check, fmt.Sprintf("declared none, executable %s", formatNumber(*executable)))
	case executable == nil:
		r.add(check, fmt.Sprintf("declared %s, executable none", formatNumber(declared)))
	case declared != *executable:
		r.add(check, fmt.Sprintf("declared %s, executable %s", formatNumber(declared), formatNumber(*executable)))
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
