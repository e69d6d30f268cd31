package tabular

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSQLLimit is injected into any generated query lacking an explicit
// LIMIT clause.
const MaxSQLLimit = 100

var (
	ErrNotSelect   = errors.New("only SELECT queries are allowed")
	ErrMissingFrom = errors.New("invalid SQL (missing FROM clause)")
)

var forbiddenKeywords = []string{
	"delete", "drop", "update", "insert", "alter",
	"truncate", "create", "replace", "attach", "detach",
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	whereFromRe  = regexp.MustCompile(`(?i)SELECT (.+?) WHERE (.+?) FROM ([a-zA-Z0-9_]+)`)
	orderFromRe  = regexp.MustCompile(`(?i)SELECT (.+?) ORDER BY (.+?) FROM ([a-zA-Z0-9_]+)`)
	dupFromRe    = regexp.MustCompile(`(?i)FROM\s+FROM`)
	hasFromRe    = regexp.MustCompile(`(?i)\bfrom\b`)

	forbiddenRes = buildForbiddenRes()
)

func buildForbiddenRes() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, word := range forbiddenKeywords {
		res[word] = regexp.MustCompile(`\b` + word + `\b`)
	}
	return res
}

// Repair fixes the clause-order mistakes LLMs commonly make. It must run
// before EnforceSafety, which assumes a sane clause order.
func Repair(query string) (string, error) {
	query = whitespaceRe.ReplaceAllString(strings.TrimSpace(query), " ")

	// SELECT ... WHERE ... FROM t  ->  SELECT ... FROM t WHERE ...
	query = whereFromRe.ReplaceAllString(query, "SELECT $1 FROM $3 WHERE $2")

	// SELECT ... ORDER BY ... FROM t  ->  SELECT ... FROM t ORDER BY ...
	query = orderFromRe.ReplaceAllString(query, "SELECT $1 FROM $3 ORDER BY $2")

	query = dupFromRe.ReplaceAllString(query, "FROM")

	if !hasFromRe.MatchString(query) {
		return "", ErrMissingFrom
	}
	return strings.TrimSpace(query), nil
}

// EnforceSafety rejects anything that is not a plain SELECT and injects a
// row limit when none is present.
func EnforceSafety(query string) (string, error) {
	clean := strings.ToLower(strings.TrimSpace(query))

	if !strings.HasPrefix(clean, "select") {
		return "", ErrNotSelect
	}

	for _, word := range forbiddenKeywords {
		if forbiddenRes[word].MatchString(clean) {
			return "", fmt.Errorf("forbidden SQL operation: %s", strings.ToUpper(word))
		}
	}

	if !strings.Contains(clean, " limit ") {
		query = strings.TrimRight(strings.TrimSpace(query), ";") +
			fmt.Sprintf(" LIMIT %d;", MaxSQLLimit)
	}
	return query, nil
}
