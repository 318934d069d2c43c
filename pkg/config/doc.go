// Package config holds the settings of a clone run.
//
// Settings come from three places, lowest priority first: Default(), an
// optional YAML file loaded with LoadFromFile, and command-line flags applied
// by the CLI. A config file looks like:
//
//	base_url: https://anonymous.4open.science
//	output_dir: ./mirror
//	workers: 4
//	proxy: 127.0.0.1:7890
//	skip: [pyc, .DS_Store]
//	timeout: 60s
//	retry:
//	  attempts: 5
//	  delay: 400ms
//	ledger: ~/.anonclone/history.db
package config
