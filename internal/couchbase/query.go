package couchbase

import (
	"fmt"
	"regexp"
	"strings"

	"stealthcompany.com/archaeoseeker/internal/docstore"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QueryRow represents a row from N1QL query results
type QueryRow struct {
	ID       string         `json:"id"`
	Resource map[string]any `json:"resource"`
}

// buildQuery renders a docstore query as parameterised N1QL over keyspace
func buildQuery(keyspace string, q docstore.Query) (string, map[string]any, error) {
	var where []string
	params := make(map[string]any)

	for i, f := range q.Filters {
		name := fmt.Sprintf("p%d", i)
		switch f.Op {
		case docstore.OpEq:
			if !fieldPattern.MatchString(f.Field) {
				return "", nil, fmt.Errorf("invalid field name %q", f.Field)
			}
			where = append(where, fmt.Sprintf("d.`%s` = $%s", f.Field, name))
		case docstore.OpArrayContains:
			if !fieldPattern.MatchString(f.Field) {
				return "", nil, fmt.Errorf("invalid field name %q", f.Field)
			}
			where = append(where, fmt.Sprintf("ANY v IN d.`%s` SATISFIES v = $%s END", f.Field, name))
		case docstore.OpIDIn:
			where = append(where, fmt.Sprintf("META(d).id IN $%s", name))
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		params[name] = f.Value
	}

	if q.After != "" {
		where = append(where, "META(d).id > $after")
		params["after"] = q.After
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT META(d).id AS id, d AS resource FROM %s AS d", keyspace)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY META(d).id")
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String(), params, nil
}
