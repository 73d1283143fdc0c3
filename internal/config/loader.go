// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bufio"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ManuGH/drmcore/internal/log"
)

// LoadFromText parses a line-oriented "key value" payload (the
// /opt/aamp.cfg format: one assignment per line, '#' starts a comment) and
// Sets each recognized key under layer. Malformed or unknown lines are
// skipped with a warning; the payload as a whole is never fatal.
func LoadFromText(s *Store, payload string, layer Layer) {
	logger := log.WithComponent("config")
	scanner := bufio.NewScanner(strings.NewReader(payload))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			logger.Warn().Str("line", line).Msg("config.text_parse_skip_malformed")
			continue
		}
		key := Key(strings.TrimSpace(fields[0]))
		raw := strings.TrimSpace(fields[1])

		spec, ok := registry[key]
		if !ok {
			logger.Warn().Str("key", string(key)).Msg("config.text_parse_skip_unknown_key")
			continue
		}

		if err := setFromText(s, layer, key, spec.Type, raw); err != nil {
			logger.Warn().Err(err).Str("key", string(key)).Str("raw", raw).Msg("config.text_parse_skip_entry")
		}
	}
}

func setFromText(s *Store, layer Layer, key Key, t ValueType, raw string) error {
	switch t {
	case TypeBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		return Set(s, layer, key, v)
	case TypeInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		return Set(s, layer, key, v)
	case TypeLong:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		return Set(s, layer, key, v)
	case TypeDouble:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		return Set(s, layer, key, v)
	case TypeString:
		return Set(s, layer, key, raw)
	default:
		return ErrTypeMismatch
	}
}

// LoadFromJson parses a JSON object payload (the /opt/aampcfg.json format)
// and Sets each recognized key under layer. Unknown keys and type
// mismatches are skipped with a warning, matching LoadFromText's
// non-fatal failure mode.
func LoadFromJson(s *Store, payload []byte, layer Layer) {
	logger := log.WithComponent("config")

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		logger.Warn().Err(err).Msg("config.json_parse_failed")
		return
	}

	for k, v := range raw {
		key := Key(k)
		spec, ok := registry[key]
		if !ok {
			logger.Warn().Str("key", k).Msg("config.json_parse_skip_unknown_key")
			continue
		}
		if err := setFromJSON(s, layer, key, spec.Type, v); err != nil {
			logger.Warn().Err(err).Str("key", k).Msg("config.json_parse_skip_entry")
		}
	}
}

func setFromJSON(s *Store, layer Layer, key Key, t ValueType, v any) error {
	switch t {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return ErrTypeMismatch
		}
		return Set(s, layer, key, b)
	case TypeInt:
		f, ok := v.(float64)
		if !ok {
			return ErrTypeMismatch
		}
		return Set(s, layer, key, int(f))
	case TypeLong:
		f, ok := v.(float64)
		if !ok {
			return ErrTypeMismatch
		}
		return Set(s, layer, key, int64(f))
	case TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return ErrTypeMismatch
		}
		return Set(s, layer, key, f)
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return ErrTypeMismatch
		}
		return Set(s, layer, key, str)
	default:
		return ErrTypeMismatch
	}
}
