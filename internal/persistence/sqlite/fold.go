package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
)

// foldFunction lower-cases text with full Unicode case mapping. SQLite's
// built-in lower() only folds ASCII, so searches compare fold(column) against a
// term folded by foldText.
const foldFunction = "fold"

func init() {
	if err := moderncsqlite.RegisterDeterministicScalarFunction(foldFunction, 1, foldScalar); err != nil {
		panic(fmt.Sprintf("sqlite: register %s(): %v", foldFunction, err))
	}
}

func foldScalar(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch value := args[0].(type) {
	case string:
		return foldText(value), nil
	case []byte:
		return foldText(string(value)), nil
	default:
		return value, nil
	}
}

func foldText(value string) string {
	return strings.ToLower(value)
}
