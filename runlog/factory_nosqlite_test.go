//go:build !sqlite

package runlog

import "testing"

func TestNewStoreWithoutSQLite(t *testing.T) {
	if _, err := NewStore("sqlite", "journal.db"); err == nil {
		t.Error("expected an error without the sqlite build tag")
	}
}
