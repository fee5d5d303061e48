package database

import (
	"errors"
	"fmt"

	"github.com/echopoint/echopoint/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgErrorMapping struct {
	kind    models.Kind
	message string
}

// pgErrorTable maps postgres error codes to the response taxonomy. Codes not
// listed fall through to the non-operational default.
var pgErrorTable = map[string]pgErrorMapping{
	"23505": {models.KindConflict, "Duplicate value violates unique constraint."},   // unique_violation
	"23503": {models.KindValidation, "Invalid reference. Related record not found."}, // foreign_key_violation
	"23502": {models.KindValidation, "Missing required field."},                      // not_null_violation
	"22P02": {models.KindValidation, "Invalid input syntax."},                        // invalid_text_representation
	"42703": {models.KindValidation, "Invalid column in query."},                     // undefined_column
	"42P01": {models.KindInternal, "Invalid table in query."},                        // undefined_table
	"42601": {models.KindInternal, "SQL syntax error."},                              // syntax_error
	"42883": {models.KindInternal, "Invalid SQL function/operator."},                 // undefined_function
	"40001": {models.KindTransient, "Transaction failed due to concurrency. Please retry."}, // serialization_failure
	"40P01": {models.KindTransient, "Deadlock detected. Please retry."},              // deadlock_detected
	"22012": {models.KindValidation, "Division by zero error."},
	"22001": {models.KindValidation, "Input string too long for column."},
	"22003": {models.KindValidation, "Number out of range for column type."},
}

// MapPostgresError translates a datastore failure into the error taxonomy.
// Non-postgres errors pass through unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewNotFoundError("No matching records.")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	mapping, ok := pgErrorTable[pgErr.Code]
	if !ok {
		return models.NewInternalError("Some unknown error occurred.")
	}

	message := mapping.message
	if pgErr.Code == "23502" && pgErr.ColumnName != "" {
		message = fmt.Sprintf("Missing required field: %s", pgErr.ColumnName)
	}

	switch mapping.kind {
	case models.KindConflict:
		return models.NewConflictError(message)
	case models.KindValidation:
		return models.NewValidationError(message)
	case models.KindTransient:
		return models.NewTransientError(message)
	default:
		return models.NewInternalError(message)
	}
}
