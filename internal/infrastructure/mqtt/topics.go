package mqtt

import (
	"fmt"
	"strings"
)

// maxTopicLength is the MQTT limit on encoded topic length.
const maxTopicLength = 65535

// Wildcards per the MQTT 3.1.1 topic filter rules.
const (
	wildcardSingle = "+"
	wildcardMulti  = "#"
)

// ValidateTopicFilter checks a subscription topic filter.
//
// Rules:
//   - Must not be empty or longer than 65535 bytes
//   - Must not contain NUL
//   - "#" must occupy a whole level and be the last level
//   - "+" must occupy a whole level
//
// Example valid filters: "sensors/#", "sensors/+/temperature", "#"
//
// Returns:
//   - error: wrapped ErrInvalidTopic describing the first violation
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: filter cannot be empty", ErrInvalidTopic)
	}
	if len(filter) > maxTopicLength {
		return fmt.Errorf("%w: filter exceeds %d bytes", ErrInvalidTopic, maxTopicLength)
	}
	if strings.ContainsRune(filter, 0) {
		return fmt.Errorf("%w: filter contains NUL", ErrInvalidTopic)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		if strings.Contains(level, wildcardMulti) {
			if level != wildcardMulti {
				return fmt.Errorf("%w: %q must occupy a whole level", ErrInvalidTopic, wildcardMulti)
			}
			if i != len(levels)-1 {
				return fmt.Errorf("%w: %q must be the last level", ErrInvalidTopic, wildcardMulti)
			}
		}
		if strings.Contains(level, wildcardSingle) && level != wildcardSingle {
			return fmt.Errorf("%w: %q must occupy a whole level", ErrInvalidTopic, wildcardSingle)
		}
	}

	return nil
}
