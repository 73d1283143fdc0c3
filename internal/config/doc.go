// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config implements the player's layered configuration store: a
// typed key/value store whose writes obey a six-layer ownership precedence
// (DEFAULT < OPERATOR < STREAM < APPLICATION < TUNE < DEV). See Store, Get,
// Set, Toggle and Restore.
package config
