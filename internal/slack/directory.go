package slack

import "strings"

// Directory is a point-in-time mapping from user ID to display name.
// It is built from a user list and never refreshed; build a new one to
// pick up membership changes. A Directory is safe for concurrent reads.
type Directory struct {
	order []string
	names map[string]string
}

// NewDirectory builds a directory from users, keeping the order of the list.
// When an ID appears more than once the first entry wins.
func NewDirectory(users []User) *Directory {
	d := &Directory{
		order: make([]string, 0, len(users)),
		names: make(map[string]string, len(users)),
	}
	for _, u := range users {
		if _, ok := d.names[u.ID]; ok {
			continue
		}
		d.order = append(d.order, u.ID)
		d.names[u.ID] = u.Name
	}
	return d
}

// Len returns the number of users in the directory.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Lookup returns the display name for a user ID.
func (d *Directory) Lookup(id string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.names[id]
	return name, ok
}

// DisplayName resolves the name shown for an author. A non-empty override
// wins; otherwise the ID is looked up, falling back to the ID itself.
func (d *Directory) DisplayName(id, override string) string {
	if override != "" {
		return override
	}
	if name, ok := d.Lookup(id); ok {
		return name
	}
	return id
}

// MentionToken returns the inline token Slack uses to reference a user.
func MentionToken(id string) string {
	return "<@" + id + ">"
}

// Normalize replaces every mention token of a known user with "@" followed
// by the user's display name. Users are processed in directory order, one
// literal substitution pass per user.
func (d *Directory) Normalize(text string) string {
	if d == nil {
		return text
	}
	for _, id := range d.order {
		text = strings.ReplaceAll(text, MentionToken(id), "@"+d.names[id])
	}
	return text
}
