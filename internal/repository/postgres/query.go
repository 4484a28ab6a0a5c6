package postgres

import (
	"fmt"
	"strings"
)

// selectQuery composes a SELECT with $n placeholders from equality,
// pattern and range filters.
type selectQuery struct {
	columns string
	table   string
	where   []string
	args    []interface{}
	orderBy []string
	limit   int
}

func from(table, columns string) *selectQuery {
	return &selectQuery{table: table, columns: columns}
}

func (q *selectQuery) placeholder(arg interface{}) string {
	q.args = append(q.args, arg)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *selectQuery) eq(column string, value interface{}) *selectQuery {
	q.where = append(q.where, fmt.Sprintf("%s = %s", column, q.placeholder(value)))
	return q
}

func (q *selectQuery) gte(column string, value interface{}) *selectQuery {
	q.where = append(q.where, fmt.Sprintf("%s >= %s", column, q.placeholder(value)))
	return q
}

func (q *selectQuery) lte(column string, value interface{}) *selectQuery {
	q.where = append(q.where, fmt.Sprintf("%s <= %s", column, q.placeholder(value)))
	return q
}

// ilike matches a case-insensitive substring; wildcards in term are escaped.
func (q *selectQuery) ilike(column, term string) *selectQuery {
	pattern := "%" + escapeLike(term) + "%"
	q.where = append(q.where, fmt.Sprintf("%s ILIKE %s", column, q.placeholder(pattern)))
	return q
}

func (q *selectQuery) isNull(column string) *selectQuery {
	q.where = append(q.where, column+" IS NULL")
	return q
}

func (q *selectQuery) order(column string, ascending bool) *selectQuery {
	dir := "ASC"
	if !ascending {
		dir = "DESC"
	}
	q.orderBy = append(q.orderBy, column+" "+dir)
	return q
}

func (q *selectQuery) limitTo(n int) *selectQuery {
	q.limit = n
	return q
}

// single limits the result to one row.
func (q *selectQuery) single() *selectQuery {
	return q.limitTo(1)
}

func (q *selectQuery) build() (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(q.columns)
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)
	if len(q.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(q.where, " AND "))
	}
	if len(q.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.orderBy, ", "))
	}
	if q.limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.limit))
	}
	return sb.String(), q.args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
