// Package config handles configuration loading for the sqlite-helper CLI.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file (chosen by extension)
// with ${VAR} environment variable expansion, then individual fields are
// overridden from SQLITE_HELPER_* environment variables.
//
// # Configuration File
//
// Recognized keys, mirroring the library's Options:
//
//	database:
//	  table: foods          # default "database"
//	  dir: ./data           # default "./data"
//	  filename: sqlite.db   # default "sqlite.db"
//	  columns:              # required only when the table does not exist
//	    name: text
//	    price: int
//	  caching: true         # default true
//	  fetch_all: false      # requires caching
//	  wal: false
//	logging:
//	  level: info           # debug, info, warn, error
package config
