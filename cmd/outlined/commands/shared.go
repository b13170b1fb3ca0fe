package commands

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/podlove/outliner/internal/db"
)

// openStore opens the sqlite database the --db flag or OUTLINED_DB env
// var names, falling back to db.DefaultDBPath. Callers must Close it.
func openStore() (*db.Store, error) {
	path := viper.GetString("db")
	if path == "" {
		path = db.DefaultDBPath()
	}
	store, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return store, nil
}
