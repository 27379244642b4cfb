package cli

import (
	"strings"

	"github.com/materialscodegraph/materialscodegraph/internal/store"
)

// openStore picks the ledger backend by path suffix: .db selects
// SQLite, anything else the JSON file store.
func openStore(path string) (store.Store, error) {
	if strings.HasSuffix(path, ".db") {
		return store.OpenSQLite(path)
	}
	return store.OpenFile(path)
}
