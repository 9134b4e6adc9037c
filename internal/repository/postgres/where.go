package postgres

import (
	"strconv"
	"strings"
)

// where accumulates AND-ed predicates with positional placeholders.
type where struct {
	clauses []string
	args    []any
}

// add appends a predicate; each "?" in clause becomes the next $n and
// consumes one value.
func (w *where) add(clause string, values ...any) {
	var b strings.Builder
	vi := 0
	for _, r := range clause {
		if r == '?' && vi < len(values) {
			w.args = append(w.args, values[vi])
			vi++
			b.WriteString("$" + strconv.Itoa(len(w.args)))
			continue
		}
		b.WriteRune(r)
	}
	w.clauses = append(w.clauses, b.String())
}

// addShared appends a predicate whose "?" marks all bind to one value.
func (w *where) addShared(clause string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

// next returns the placeholder the next argument will take.
func (w *where) next() string {
	return "$" + strconv.Itoa(len(w.args)+1)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}
