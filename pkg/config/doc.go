// Package config provides configuration management for Khawab.
//
// Configuration is built in layers, later layers overriding earlier ones:
//
//  1. Default values (defaults.go)
//  2. Values from a YAML file
//  3. An optional dotenv file, loaded into the process environment
//  4. KHAWAB_* environment variables
//  5. Validation (fails fast if invalid)
//
// # Environment Variables
//
// The most commonly overridden variables:
//
//   - KHAWAB_UPSTREAM_BASE_URL overrides upstream.base_url
//   - KHAWAB_MODEL overrides upstream.model
//   - KHAWAB_CF_ACCESS_CLIENT_ID / KHAWAB_CF_ACCESS_CLIENT_SECRET set the
//     access gateway credentials
//   - KHAWAB_MAX_DREAM_LENGTH, KHAWAB_REQUEST_TIMEOUT and
//     KHAWAB_MIN_REQUEST_INTERVAL tune the interpretation client
//
// # Example Configuration
//
//	upstream:
//	  base_url: "https://ollama.example.com"
//	  model: "llama3.2"
//
//	proxy:
//	  listen_address: "0.0.0.0:8080"
//	  mount: "/ollama"
//	  default_path: "api/tags"
//	  strip_origin_header: true
//
//	history:
//	  backend: "sqlite"
//	  sqlite:
//	    path: "data/history.db"
//
// # Hot Reload
//
// Watcher observes the configuration file with fsnotify and hands every
// successfully validated reload to a callback. Invalid edits are logged and
// ignored.
package config
