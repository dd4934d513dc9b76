package survey

import (
	"errors"
	"fmt"
)

// ErrInvalidDocument is the root of every structural failure of a survey
// document. Missing or unparseable cells are never reported with it.
var ErrInvalidDocument = errors.New("survey: invalid document")

// ValidationError describes the first shape check a document failed.
type ValidationError struct {
	Row    int // -1 when the row index is unknown
	Column string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row >= 0 && e.Column != "":
		return fmt.Sprintf("survey row %d, column %q: %s", e.Row, e.Column, e.Reason)
	case e.Row >= 0:
		return fmt.Sprintf("survey row %d: %s", e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("survey column %q: %s", e.Column, e.Reason)
	}
	return "survey: " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// Known columns that must hold text when present. ID and age may also be
// numbers.
var (
	textColumns = []string{
		ColSubmissionDate, ColGender, ColBirthplace, ColCurrentResidence,
		ColEducation, ColFatherOrigin, ColMotherOrigin, ColNativeFrench,
		ColNativeOther, ColOtherLanguages, ColKnownAccents, ColHasAccent,
		ColOwnAccent, ColParticipantCode,
	}
	textOrNumberColumns = []string{ColID, ColAge}
)

// ValidateRows checks the document shape: every row must be an object and the
// known columns, when present, must carry the expected kinds. Unknown columns
// pass through unchecked.
func ValidateRows(rows []*Row) error {
	for i, row := range rows {
		if row == nil {
			return &ValidationError{Row: i, Reason: "row is not an object"}
		}
		for _, col := range textColumns {
			v, ok := row.Get(col)
			if ok && !v.IsAbsent() && v.Kind() != KindString {
				return &ValidationError{Row: i, Column: col, Reason: "expected string, got " + v.Kind().String()}
			}
		}
		for _, col := range textOrNumberColumns {
			v, ok := row.Get(col)
			if !ok {
				continue
			}
			switch v.Kind() {
			case KindAbsent, KindString, KindNumber:
			default:
				return &ValidationError{Row: i, Column: col, Reason: "expected string or number, got " + v.Kind().String()}
			}
		}
	}
	return nil
}
