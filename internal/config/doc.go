// Package config provides configuration management for botfleet.
//
// Configuration is a single YAML file. The default location is
// ~/.config/botfleet/config.yaml; `botfleet serve --config` points elsewhere.
// A missing default file is not an error, the built-in defaults apply.
//
// # Example
//
//	server:
//	  port: 8080
//	  adminToken: change-me
//	kubernetes:
//	  namespace: botfleet-bots
//	  requestTimeout: 30s
//	bots:
//	  unpackImage: busybox:1.36
//	languages:
//	  python:
//	    defaultVersion: "3.12"
//	    images:
//	      "3.12": python:3.12-slim
//	    install: pip install -r requirements.txt
//	logging:
//	  level: debug
//	  format: json
//
// Entries under languages replace the built-in entry of the same name; other
// built-in languages stay available.
//
// # Hot Reload
//
// Watcher observes the file with fsnotify. Valid edits are handed to a
// callback (the server swaps the language catalog and the log level); invalid
// edits are logged and ignored.
package config
