package core

import "strings"

// CooldownKey formats the composite key shared by every cooldown backend.
func CooldownKey(actorID, scope, action string) string {
	return strings.Join([]string{"cooldown", actorID, scope, action}, ":")
}
