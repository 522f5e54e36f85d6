package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var quotedField = regexp.MustCompile(`'([^']*)'`)

// Decode decodes an untyped payload into out, which must be a pointer to a
// struct tagged with `mapstructure` payload keys. Values are never coerced:
// a string where a number is declared, or a bool where a string is, becomes
// a type violation on the returned checker. Hook failures become format
// violations. The caller then adds field constraints and calls Err. The
// error return is reserved for misuse, such as a non-pointer target.
func Decode(input any, out any, hooks ...mapstructure.DecodeHookFunc) (*Checker, error) {
	meta := &mapstructure.Metadata{}
	cfg := &mapstructure.DecoderConfig{
		Metadata: meta,
		Result:   out,
		TagName:  "mapstructure",
	}
	if len(hooks) > 0 {
		cfg.DecodeHook = mapstructure.ComposeDecodeHookFunc(hooks...)
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	c := NewChecker()

	if input == nil {
		c.Add(Violation{Rule: RuleType, Message: "payload is empty"})
		return c, nil
	}

	if err := decoder.Decode(dropNulls(input)); err != nil {
		var merr *mapstructure.Error
		if !errors.As(err, &merr) {
			c.Add(decodeViolation(err.Error()))
		} else {
			for _, msg := range merr.Errors {
				c.Add(decodeViolation(msg))
			}
		}
	}

	c.present = make(map[string]struct{}, len(meta.Keys))
	for _, key := range meta.Keys {
		c.present[key] = struct{}{}
	}

	return c, nil
}

func decodeViolation(msg string) Violation {
	field := ""
	if m := quotedField.FindStringSubmatch(msg); m != nil {
		field = m[1]
	}

	if strings.HasPrefix(msg, "error decoding '") {
		// Hook failures carry their own message after the field prefix.
		if idx := strings.Index(msg, "': "); idx >= 0 {
			msg = msg[idx+3:]
		}
		return Violation{Field: field, Rule: RuleFormat, Message: msg}
	}

	return Violation{Field: field, Rule: RuleType, Message: "has an invalid type: " + msg}
}

// dropNulls removes null entries so they count as absent rather than zero.
func dropNulls(input any) any {
	switch v := input.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if val == nil {
				continue
			}
			out[k] = dropNulls(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, val := range v {
			out = append(out, dropNulls(val))
		}
		return out
	}
	return input
}
