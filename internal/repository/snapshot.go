package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"streak-keeper/internal/model"
	"streak-keeper/internal/streak"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// EncodeSnapshot writes categories as a JSON array or a YAML sequence.
func EncodeSnapshot(w io.Writer, categories []model.Category, format string) error {
	if categories == nil {
		categories = []model.Category{}
	}
	switch strings.ToLower(format) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(categories)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(categories); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown snapshot format %q", format)
	}
}

// DecodeSnapshot reads a JSON snapshot record by record. A record with a
// broken timestamp or streak is loaded as reset; a record without a usable id
// or name is skipped. Only a blob that is not a JSON array fails as a whole.
func DecodeSnapshot(r io.Reader, log *slog.Logger) ([]model.Category, error) {
	if log == nil {
		log = slog.Default()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Category{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	categories := make([]model.Category, 0, len(records))
	seen := make(map[uint]bool, len(records))
	for i, raw := range records {
		category, ok := decodeRecord(raw, log.With("record", i))
		if !ok {
			continue
		}
		if seen[category.ID] {
			log.Warn("skipping duplicate category id", "record", i, "id", category.ID)
			continue
		}
		seen[category.ID] = true
		categories = append(categories, category)
	}
	return categories, nil
}

// DecodeSnapshotYAML reads a YAML sequence with the same per-record policy as DecodeSnapshot.
func DecodeSnapshotYAML(r io.Reader, log *slog.Logger) ([]model.Category, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc == nil {
		return []model.Category{}, nil
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return DecodeSnapshot(bytes.NewReader(asJSON), log)
}

// DecodeSnapshotAs picks the decoder for format.
func DecodeSnapshotAs(r io.Reader, format string, log *slog.Logger) ([]model.Category, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return DecodeSnapshot(r, log)
	case FormatYAML, "yml":
		return DecodeSnapshotYAML(r, log)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}

func decodeRecord(raw json.RawMessage, log *slog.Logger) (model.Category, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		log.Warn("skipping malformed category record", "error", err)
		return model.Category{}, false
	}

	var category model.Category
	var id uint
	if err := json.Unmarshal(fields["id"], &id); err != nil || id == 0 {
		log.Warn("skipping category without valid id", "raw", string(fields["id"]))
		return model.Category{}, false
	}
	category.ID = id

	if err := json.Unmarshal(fields["name"], &category.Name); err != nil || strings.TrimSpace(category.Name) == "" {
		log.Warn("skipping category without name", "id", id)
		return model.Category{}, false
	}

	corrupt := false
	if rawStreak, ok := fields["streak"]; ok {
		if err := json.Unmarshal(rawStreak, &category.Streak); err != nil {
			corrupt = true
		}
	}

	if rawLogin, ok := fields["lastLogin"]; ok && string(rawLogin) != "null" {
		var value string
		if err := json.Unmarshal(rawLogin, &value); err != nil {
			corrupt = true
		} else if parsed, err := time.Parse(time.RFC3339Nano, value); err != nil {
			corrupt = true
		} else {
			category.LastLogin = &parsed
		}
	}

	if corrupt {
		category.Streak = 0
		category.LastLogin = nil
	}

	sanitized, changed := streak.Sanitize(category)
	if corrupt || changed {
		log.Warn("resetting corrupt category record", "id", id, "name", sanitized.Name)
	}
	return sanitized, true
}
