package sqlstore

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/queryex/api/pkg/domain/report"
)

// Dialect identifies the SQL flavour of a target.
type Dialect string

// Supported dialects. The value doubles as the database/sql driver name.
const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DriverName returns the database/sql driver to open.
func (d Dialect) DriverName() string {
	return string(d)
}

// Bind rewrites the "@Name" references of query into the dialect's
// placeholders and returns the matching arguments. Values never enter the SQL
// text: PostgreSQL gets $n placeholders, SQL Server keeps its named variables
// and receives sql.Named arguments. A multi-value parameter expands to one
// placeholder per value. References that match no parameter are left as they
// are, so T-SQL local variables keep working.
func (d Dialect) Bind(query string, params []report.BoundParameter) (string, []any) {
	byName := make(map[string]report.BoundParameter, len(params))
	for _, p := range params {
		byName[strings.ToLower(p.Name)] = p
	}

	b := binder{dialect: d, params: byName, positions: make(map[string][]int), named: make(map[string]bool)}
	return b.rewrite(query), b.args
}

type binder struct {
	dialect   Dialect
	params    map[string]report.BoundParameter
	args      []any
	positions map[string][]int
	named     map[string]bool
}

func (b *binder) rewrite(query string) string {
	var out strings.Builder
	out.Grow(len(query))

	n := len(query)
	for i := 0; i < n; {
		c := query[i]
		switch {
		case c == '\'' || c == '"':
			j := skipQuoted(query, i, c, c)
			out.WriteString(query[i:j])
			i = j
		case c == '[' && b.dialect == DialectSQLServer:
			j := skipQuoted(query, i, '[', ']')
			out.WriteString(query[i:j])
			i = j
		case c == '-' && i+1 < n && query[i+1] == '-':
			j := strings.IndexByte(query[i:], '\n')
			if j < 0 {
				j = n - i
			}
			out.WriteString(query[i : i+j])
			i += j
		case c == '/' && i+1 < n && query[i+1] == '*':
			j := strings.Index(query[i+2:], "*/")
			end := n
			if j >= 0 {
				end = i + 2 + j + 2
			}
			out.WriteString(query[i:end])
			i = end
		case c == '$' && b.dialect == DialectPostgres && i+1 < n && query[i+1] == '$':
			j := strings.Index(query[i+2:], "$$")
			end := n
			if j >= 0 {
				end = i + 2 + j + 2
			}
			out.WriteString(query[i:end])
			i = end
		case c == '@':
			j := i + 1
			for j < n && query[j] == '@' {
				j++
			}
			k := scanIdent(query, j)
			name := query[j:k]
			if j > i+1 || name == "" {
				// "@@ROWCOUNT" and lone "@" operators pass through.
				out.WriteString(query[i:k])
				i = k
				continue
			}
			if p, ok := b.params[strings.ToLower(name)]; ok {
				out.WriteString(b.placeholder(name, p))
			} else {
				out.WriteString(query[i:k])
			}
			i = k
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func (b *binder) placeholder(token string, p report.BoundParameter) string {
	values := p.Values
	if len(values) == 0 {
		values = []any{nil}
	}

	switch b.dialect {
	case DialectPostgres:
		key := strings.ToLower(p.Name)
		pos, ok := b.positions[key]
		if !ok {
			if !p.Multi {
				values = values[:1]
			}
			for _, v := range values {
				b.args = append(b.args, v)
				pos = append(pos, len(b.args))
			}
			b.positions[key] = pos
		}
		parts := make([]string, len(pos))
		for i, n := range pos {
			parts[i] = "$" + strconv.Itoa(n)
		}
		return strings.Join(parts, ", ")
	default:
		if !p.Multi {
			if !b.named[token] {
				b.named[token] = true
				b.args = append(b.args, sql.Named(token, values[0]))
			}
			return "@" + token
		}
		parts := make([]string, len(values))
		for i, v := range values {
			name := token + "_" + strconv.Itoa(i+1)
			if !b.named[name] {
				b.named[name] = true
				b.args = append(b.args, sql.Named(name, v))
			}
			parts[i] = "@" + name
		}
		return strings.Join(parts, ", ")
	}
}

// skipQuoted returns the index just past the literal opened at query[i].
// A doubled closing character is an escaped one.
func skipQuoted(query string, i int, open, closing byte) int {
	n := len(query)
	j := i + 1
	for j < n {
		if query[j] == closing {
			if open == closing && j+1 < n && query[j+1] == closing {
				j += 2
				continue
			}
			return j + 1
		}
		j++
	}
	return n
}

// scanIdent returns the end of the identifier starting at query[i].
func scanIdent(query string, i int) int {
	j := i
	for j < len(query) {
		r, size := utf8.DecodeRuneInString(query[j:])
		if r == '_' || unicode.IsLetter(r) || (j > i && (unicode.IsDigit(r) || r == '$' || r == '#')) {
			j += size
			continue
		}
		break
	}
	return j
}
