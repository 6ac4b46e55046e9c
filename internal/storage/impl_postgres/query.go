package impl_postgres

import (
	"strconv"

	"github.com/feedspine/feedspine/internal/storage"
)

func whereClause(filter storage.Filter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Source != "" {
		args = append(args, filter.Source)
		clauses = append(clauses, "metadata->>'Source' = $"+placeholder(len(args)))
	}
	if filter.Layer != nil {
		args = append(args, *filter.Layer)
		clauses = append(clauses, "layer = $"+placeholder(len(args)))
	}
	if !filter.FirstSeenAfter.IsZero() {
		args = append(args, filter.FirstSeenAfter)
		clauses = append(clauses, "first_seen_at >= $"+placeholder(len(args)))
	}
	if !filter.FirstSeenBefore.IsZero() {
		args = append(args, filter.FirstSeenBefore)
		clauses = append(clauses, "first_seen_at <= $"+placeholder(len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	sql := " WHERE "
	for i, c := range clauses {
		if i > 0 {
			sql += " AND "
		}
		sql += c
	}
	return sql, args
}

func placeholder(n int) string {
	return strconv.Itoa(n)
}

func buildQuery(filter storage.Filter) (string, []any) {
	where, args := whereClause(filter)
	query := "SELECT " + recordColumns + " FROM records" + where + " ORDER BY first_seen_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + placeholder(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + placeholder(len(args))
	}
	return query, args
}

func buildCountQuery(filter storage.Filter) (string, []any) {
	where, args := whereClause(filter)
	return "SELECT COUNT(*) FROM records" + where, args
}
