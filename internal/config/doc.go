// Package config loads tasksync settings from a TOML file.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/tasksync/config.toml
//  3. If the file doesn't exist, use defaults
//  4. Empty fields keep their defaults
//  5. TASKSYNC_API_URL and TASKSYNC_TOKEN override the file
//
// # Fields
//
//	api_url = "http://127.0.0.1:8080"
//	token = ""
//	state_dir = "~/.local/share/tasksync"
//	storage_backend = "file"   # file, sqlite or memory
//	freshness = "5m"
//	settle_window = "150ms"    # bounded to 100ms..200ms by the coordinator
//	poll_interval = "5s"
//	max_cache_entries = 64     # 0 keeps every signature
//
// Durations use time.ParseDuration syntax. Tilde paths are expanded.
//
// Missing config files are NOT an error. Malformed TOML, unknown storage
// backends and unparsable durations are.
package config
