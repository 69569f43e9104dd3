// domain/note.go
package domain

import "time"

// Note is a stored note. The id is not part of the persisted record; it is
// carried by the record's file name.
type Note struct {
	ID        int64     `json:"-"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Info returns the note's timestamps.
func (n Note) Info() NoteInfo {
	return NoteInfo{CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
}

type NoteInfo struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is an entry of the static demo listing.
type Item struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
