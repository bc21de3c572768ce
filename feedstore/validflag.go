package feedstore

import "github.com/tidwall/gjson"

// ValidFlagKind identifies the storage encoding a validity value arrived in.
type ValidFlagKind int

const (
	// ValidFlagBool is the current encoding: a bare boolean token.
	ValidFlagBool ValidFlagKind = iota

	// ValidFlagWrapped is the legacy encoding: a JSON document whose
	// "isValid" field holds the boolean.
	ValidFlagWrapped
)

// ValidFlag is the decoded validity of a feed's last check. The registry
// predates the current writer, so the column may hold either a bare boolean
// ("true", "1") or a wrapped JSON document ({"isValid": true, ...}); both
// are decoded exactly once, at read time, into this form. Kind records
// which encoding was found so callers can tell legacy rows apart.
type ValidFlag struct {
	Kind  ValidFlagKind
	Value bool
}

// Bool returns the decoded validity regardless of encoding.
func (f ValidFlag) Bool() bool {
	return f.Value
}

// DecodeValidFlag decodes a raw is_valid column value. Anything that is
// neither a recognisable boolean nor a wrapped document decodes as invalid.
func DecodeValidFlag(raw string) ValidFlag {
	switch raw {
	case "true", "TRUE", "True", "1":
		return ValidFlag{Kind: ValidFlagBool, Value: true}
	case "false", "FALSE", "False", "0", "":
		return ValidFlag{Kind: ValidFlagBool, Value: false}
	}

	if gjson.Valid(raw) {
		if wrapped := gjson.Get(raw, "isValid"); wrapped.Type == gjson.True || wrapped.Type == gjson.False {
			return ValidFlag{Kind: ValidFlagWrapped, Value: wrapped.Bool()}
		}
	}

	return ValidFlag{Kind: ValidFlagBool, Value: false}
}

// encodeValidFlag writes the current (bare boolean) encoding.
func encodeValidFlag(valid bool) string {
	if valid {
		return "true"
	}
	return "false"
}
