package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/steveyegge/issuebridge/internal/tracker"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
)

// DefaultPriority is the priority id used when none is configured.
const DefaultPriority = 4

// BuildIssuePayload maps a create form and the project's options to the
// fields of a new issue. Configured extra fields are applied last and win
// over the built-in ones.
func BuildIssuePayload(cfg *tracker.Config, form tracker.FormData) (trackerapi.IssuePayload, error) {
	payload := trackerapi.IssuePayload{
		"subject":     form.Title,
		"description": form.Description,
		"priority_id": DefaultPriority,
	}

	for field, option := range map[string]string{
		"project_id":  tracker.Options.ProjectID,
		"tracker_id":  tracker.Options.TrackerID,
		"priority_id": tracker.Options.DefaultPriority,
	} {
		value, err := cfg.Get(option)
		if err != nil {
			return nil, &tracker.ConfigurationError{Key: cfg.Prefix + "." + option, Err: err}
		}
		if value != "" {
			payload[field] = idValue(value)
		}
	}

	raw, err := cfg.Get(tracker.Options.ExtraFields)
	if err != nil {
		return nil, &tracker.ConfigurationError{Key: cfg.Prefix + "." + tracker.Options.ExtraFields, Err: err}
	}
	extra, err := ParseExtraFields(raw)
	if err != nil {
		return nil, &tracker.ConfigurationError{Key: cfg.Prefix + "." + tracker.Options.ExtraFields, Err: err}
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload, nil
}

// ParseExtraFields decodes the extra_fields option. Comments and trailing
// commas are accepted; the top level must be an object. Empty input yields
// no fields.
func ParseExtraFields(raw string) (map[string]any, error) {
	if len(bytes.TrimSpace([]byte(raw))) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(raw))))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("extra fields must be a JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("extra fields must be a JSON object, got null")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("extra fields must be a single JSON object")
	}
	return fields, nil
}

// idValue sends numeric ids as numbers and anything else (identifiers
// such as project slugs) as strings.
func idValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
