package guc

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is a setting's value type, used to pick its structural validation
// before any custom CheckHook runs.
type Kind int

const (
	KindBoolean Kind = iota
	KindInteger
	KindReal
	KindString
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// CheckHook validates and optionally canonicalizes a proposed value for a
// setting before it is committed. Returning a different string than value
// rewrites the value in place, e.g. the whitelist's own hook sorts and
// dedups its class list.
type CheckHook func(current *Setting, value string, source Source) (string, error)

// AssignHook runs after a value has passed validation and is being
// committed. Side effects of a value change (cache invalidation, derived
// state) live here; none of the built-in settings need one.
type AssignHook func(current *Setting, newValue string)

// validateKind applies the structural check implied by k, independent of
// any setting-specific CheckHook.
func validateKind(s *Setting, value string) (string, error) {
	switch s.Kind {
	case KindBoolean:
		return validateBoolean(value)
	case KindInteger:
		return validateInteger(s, value)
	case KindReal:
		return validateReal(s, value)
	case KindEnum:
		return validateEnum(s, value)
	case KindString:
		return value, nil
	default:
		return "", fmt.Errorf("setting %q has unknown kind", s.Name)
	}
}

func validateBoolean(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "yes", "1":
		return "on", nil
	case "off", "false", "no", "0":
		return "off", nil
	default:
		return "", fmt.Errorf("invalid boolean value %q", value)
	}
}

// splitUnitSuffix separates a trailing run of letters (a unit like "kB" or
// "ms") from the leading numeric text.
func splitUnitSuffix(value string) (numeric, unit string) {
	i := len(value)
	for i > 0 && isASCIILetter(value[i-1]) {
		i--
	}
	return value[:i], value[i:]
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func validateInteger(s *Setting, value string) (string, error) {
	numeric, unit := splitUnitSuffix(value)
	if digits := strings.TrimPrefix(value, "-"); len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		// Hex digits a-f belong to the number; a unit can only follow them.
		end := len(value) - len(digits) + 2
		for end < len(value) && strings.IndexByte("0123456789abcdefABCDEF", value[end]) >= 0 {
			end++
		}
		numeric, unit = value[:end], value[end:]
	}
	var n int64
	var err error
	if strings.HasPrefix(numeric, "0x") || strings.HasPrefix(numeric, "0X") ||
		strings.HasPrefix(numeric, "-0x") || strings.HasPrefix(numeric, "-0X") {
		n, err = strconv.ParseInt(numeric, 0, 64)
	} else {
		n, err = strconv.ParseInt(numeric, 10, 64)
	}
	if err != nil {
		return "", fmt.Errorf("invalid integer value %q for %q", value, s.Name)
	}
	if unit != "" && len(s.Units) > 0 && !containsUnit(s.Units, unit) {
		return "", fmt.Errorf("invalid unit %q for %q, must be one of %v", unit, s.Name, s.Units)
	}
	if unit != "" && len(s.Units) > 0 {
		// IntMin/IntMax are in the setting's first listed unit; scale n into it.
		scale := map[string]int64{"kb": 1, "mb": 1 << 10, "gb": 1 << 20, "tb": 1 << 30}
		if from, ok := scale[strings.ToLower(unit)]; ok {
			if to, ok := scale[strings.ToLower(s.Units[0])]; ok {
				n = n * from / to
			}
		}
	}
	if s.IntMin != nil && n < *s.IntMin {
		return "", fmt.Errorf("value %d for %q is below minimum %d", n, s.Name, *s.IntMin)
	}
	if s.IntMax != nil && n > *s.IntMax {
		return "", fmt.Errorf("value %d for %q is above maximum %d", n, s.Name, *s.IntMax)
	}
	return value, nil
}

func containsUnit(units []string, unit string) bool {
	for _, u := range units {
		if strings.EqualFold(u, unit) {
			return true
		}
	}
	return false
}

func validateReal(s *Setting, value string) (string, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", fmt.Errorf("invalid real value %q for %q", value, s.Name)
	}
	if s.RealMin != nil && f < *s.RealMin {
		return "", fmt.Errorf("value %g for %q is below minimum %g", f, s.Name, *s.RealMin)
	}
	if s.RealMax != nil && f > *s.RealMax {
		return "", fmt.Errorf("value %g for %q is above maximum %g", f, s.Name, *s.RealMax)
	}
	return value, nil
}

func validateEnum(s *Setting, value string) (string, error) {
	for _, candidate := range s.EnumValues {
		if strings.EqualFold(candidate, value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid value %q for %q, must be one of %v", value, s.Name, s.EnumValues)
}
