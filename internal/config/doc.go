// Package config loads nested.json, the configuration of the nestedctl
// server.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 7070,
//	    "sessionTTL": "30m"
//	  },
//	  "strategies": {
//	    "open": "multiple",
//	    "select": "classic"
//	  },
//	  "metrics": {"namespace": "nested", "enabled": true},
//	  "tracing": {"tracerName": "nested"},
//	  "log": {"level": "info", "format": "json"},
//	  "redis": {"addr": "localhost:6379", "channel": "nested:changes"}
//	}
//
// Every field is optional. Missing fields take the defaults from New.
// Loading validates the result, so a bad strategy name or port fails early
// with a coded error.
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
