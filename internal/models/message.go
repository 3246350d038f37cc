package models

import "time"

type Message struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Text      string    `db:"text" json:"text"`
	AuthorID  int64     `db:"author_id" json:"authorId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// MessageView is a message joined to its author's name.
type MessageView struct {
	Message
	AuthorFirstName string `db:"first_name" json:"authorFirstName"`
	AuthorLastName  string `db:"last_name" json:"authorLastName"`
}

func (m MessageView) AuthorName() string {
	if m.AuthorLastName == "" {
		return m.AuthorFirstName
	}
	return m.AuthorFirstName + " " + m.AuthorLastName
}
