// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads tether's configuration file.
//
// One file is read, named by the --config flag or the TETHER_CONFIG
// environment variable, in that order. Without either, [Default]
// applies unchanged. Files ending in .json or .jsonc are JSON with
// comments; anything else is YAML. Both use the same field names.
//
// Path fields expand ${HOME}, ${TETHER_STATE}, and ${VAR:-default}
// after loading. No other environment variable overrides a value.
package config
