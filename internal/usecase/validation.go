package usecase

import (
	"regexp"
	"strings"
)

var actorIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:@-]{0,127}$`)

// normalizeActorID trims and validates a customer or mechanic id.
// Malformed ids are rejected here so they never reach a stored aggregate.
func normalizeActorID(raw string, invalid error) (string, error) {
	id := strings.TrimSpace(raw)
	if !actorIDPattern.MatchString(id) {
		return "", invalid
	}
	return id, nil
}

// normalizeEntityID trims and validates an id issued by the id generator
// for the given kind prefix.
func normalizeEntityID(raw, prefix string, invalid error) (string, error) {
	id := strings.TrimSpace(raw)
	if !strings.HasPrefix(id, prefix+"_") || len(id) == len(prefix)+1 || !actorIDPattern.MatchString(id) {
		return "", invalid
	}
	return id, nil
}
