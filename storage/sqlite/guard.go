package sqlite

import (
	"strings"
	"unicode"

	"github.com/candlekeep/oracle/storage"
)

// forbiddenKeywords are statement words that indicate a write or a schema
// change. The scan is conservative: a keyword inside a string literal still
// rejects the statement, which costs nothing because generated statements
// over this schema have no reason to contain them.
var forbiddenKeywords = map[string]bool{
	"insert":  true,
	"update":  true,
	"delete":  true,
	"drop":    true,
	"alter":   true,
	"create":  true,
	"replace": true,
	"attach":  true,
	"detach":  true,
	"pragma":  true,
	"vacuum":  true,
	"reindex": true,
	"grant":   true,
}

// validateReadOnly rejects anything that is not a single SELECT statement.
// Returns a *storage.QueryError whose message is suitable for feeding back
// into the repair prompt.
func validateReadOnly(statement string) error {
	trimmed := strings.TrimSpace(statement)
	trimmed = strings.TrimSuffix(trimmed, ";")

	if trimmed == "" {
		return storage.NewSyntaxError("empty statement")
	}

	if strings.ContainsRune(trimmed, ';') {
		return storage.NewExecutionError("only a single statement is permitted")
	}

	first := firstWord(trimmed)
	if first != "select" && first != "with" {
		return storage.NewExecutionError("only read-only SELECT statements are permitted")
	}

	for _, word := range splitWords(trimmed) {
		if forbiddenKeywords[word] {
			return storage.NewExecutionError("statement contains forbidden keyword: " + strings.ToUpper(word))
		}
	}

	return nil
}

// firstWord returns the first whitespace-delimited word, lowercased.
func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// splitWords splits a statement into lowercase words on non-identifier runes.
func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
