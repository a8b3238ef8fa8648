package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type Comment struct {
	ID        uuid.UUID `bson:"_id" json:"id"`
	PostID    uuid.UUID `bson:"post_id" json:"post_id"`
	ParentID  uuid.UUID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Author    string    `bson:"author" json:"author"`
	Text      string    `bson:"text" json:"text"`
	Published time.Time `bson:"published" json:"published"`
}

// Verdict is the moderation outcome for a comment. Words lists the
// vocabulary terms found, exactly or in disguise.
type Verdict struct {
	CommentID uuid.UUID `bson:"comment_id" json:"comment_id"`
	PostID    uuid.UUID `bson:"post_id" json:"post_id"`
	Banned    bool      `bson:"banned" json:"banned"`
	Words     []string  `bson:"words,omitempty" json:"words,omitempty"`
	Checked   time.Time `bson:"checked" json:"checked"`
}

// NewVerdict builds the verdict for c given the terms found in its text.
func NewVerdict(c Comment, words []string) Verdict {
	return Verdict{
		CommentID: c.ID,
		PostID:    c.PostID,
		Banned:    len(words) > 0,
		Words:     words,
		Checked:   time.Now().UTC(),
	}
}
