package streak

import (
	"strings"

	"streak-keeper/internal/model"
)

// Sanitize applies the data-integrity policy to a persisted record. A
// negative streak, a zero-time login (an unparseable column), a streak
// without a login or a login without a streak is treated as a reset. The
// name is trimmed. changed reports whether the streak fields were rewritten.
func Sanitize(c model.Category) (out model.Category, changed bool) {
	c.Name = strings.TrimSpace(c.Name)

	broken := c.Streak < 0 ||
		(c.LastLogin != nil && c.LastLogin.IsZero()) ||
		(c.Streak > 0 && c.LastLogin == nil) ||
		(c.Streak == 0 && c.LastLogin != nil)
	if !broken {
		return c, false
	}

	c.Streak = 0
	c.LastLogin = nil
	return c, true
}
