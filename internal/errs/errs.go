// Package errs holds the closed, versioned diagnostic taxonomy shared by the
// grammar engine, validators, and schema context (§7): data the service
// facade can serialize back to a host, rather than an error type meant to
// be printed straight to a terminal.
package errs

import "fmt"

// Severity is the closed set of diagnostic severities.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category groups a diagnostic's code by the pipeline stage that raised it.
type Category string

const (
	CategoryLex        Category = "lex"
	CategoryGrammar    Category = "grammar"
	CategoryStructural Category = "structural"
	CategoryReference  Category = "reference"
	CategoryMigration  Category = "migration"
	CategorySemantic   Category = "semantic"
)

// Closed code set (§7). Codes are stable across versions; new codes may be
// added but existing ones are never renamed or repurposed.
const (
	CodeIllegalCharacter     = "ILLEGAL_CHARACTER"
	CodeUnterminatedString   = "UNTERMINATED_STRING"
	CodeEmptyStatement       = "EMPTY_STATEMENT"
	CodeUnknownStatement     = "UNKNOWN_STATEMENT"
	CodeUnexpectedToken      = "UNEXPECTED_TOKEN"
	CodeUnexpectedEOF        = "UNEXPECTED_EOF"
	CodeNoBranchMatch        = "NO_BRANCH_MATCH"
	CodeNoMatchingRule       = "NO_MATCHING_RULE"
	CodeSyntaxError          = "SYNTAX_ERROR"
	CodeUnbalancedDelimiter  = "UNBALANCED_DELIMITER"
	CodeUnclosedDelimiter    = "UNCLOSED_DELIMITER"
	CodeMissingSelectionSet  = "MISSING_SELECTION_SET"
	CodeEmptySelectionSet    = "EMPTY_SELECTION_SET"
	CodeDatabaseNotFound     = "DATABASE_NOT_FOUND"
	CodeBundleNotFound       = "BUNDLE_NOT_FOUND"
	CodeFieldNotFound        = "FIELD_NOT_FOUND"
	CodeNoDatabaseContext    = "NO_DATABASE_CONTEXT"
	CodeUnknownField         = "UNKNOWN_FIELD"
	CodeMigrationDepMissing  = "MIGRATION_DEPENDENCY_NOT_FOUND"
	CodeMigrationCircularDep = "MIGRATION_CIRCULAR_DEPENDENCY"
	CodeContextStale         = "CONTEXT_STALE"
	CodeDuplicateDatabase    = "DUPLICATE_DATABASE"
	CodeDuplicateBundle      = "DUPLICATE_BUNDLE"
	CodeDestructiveOperation = "DESTRUCTIVE_OPERATION"
)

// Diagnostic is one error/warning/info entry (§6): a stable code, a human
// message, a severity, and source offsets. Suggestion and Category are
// optional.
type Diagnostic struct {
	Code        string
	Message     string
	Severity    Severity
	StartOffset int
	EndOffset   int
	Suggestion  string
	Category    Category
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s (%d-%d): %s", d.Severity, d.Code, d.StartOffset, d.EndOffset, d.Message)
}

// List collects diagnostics for one validation pass.
type List struct {
	Items []Diagnostic
}

// New returns an empty diagnostic list.
func New() *List { return &List{} }

// Add appends one diagnostic.
func (l *List) Add(d Diagnostic) {
	l.Items = append(l.Items, d)
}

// HasErrors reports whether any item carries SeverityError.
func (l *List) HasErrors() bool {
	for _, d := range l.Items {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Split partitions the list into errors, warnings, and info, the shape
// ValidationResult (§6) returns to the host.
func (l *List) Split() (errors, warnings, infos []Diagnostic) {
	for _, d := range l.Items {
		switch d.Severity {
		case SeverityError:
			errors = append(errors, d)
		case SeverityWarning:
			warnings = append(warnings, d)
		default:
			infos = append(infos, d)
		}
	}
	return errors, warnings, infos
}
