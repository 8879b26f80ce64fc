// Package comments keeps threaded comments anchored to blocks of an essay
// document and converts them to and from the persisted snapshot form.
package comments

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyComment    = errors.New("comment content is empty")
	ErrInvalidTarget   = errors.New("block and group ids are required")
	ErrCommentNotFound = errors.New("comment not found")
)

// Comment is one entry of a thread.
type Comment struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Thread is the persisted form of one group: target is "<blockId>:<groupId>".
type Thread struct {
	Target   string    `json:"target"`
	Comments []Comment `json:"comments"`
}

// Target joins a block id and a group id into a thread key.
func Target(blockID, groupID string) string {
	return blockID + ":" + groupID
}

// SplitTarget is the inverse of Target. Block ids never contain ':'.
func SplitTarget(target string) (blockID, groupID string, ok bool) {
	blockID, groupID, ok = strings.Cut(target, ":")
	return blockID, groupID, ok && blockID != "" && groupID != ""
}

// Overlay is an insertion-ordered map of thread key to comments.
// It is not safe for concurrent use.
type Overlay struct {
	order  []string
	groups map[string][]Comment

	now   func() time.Time
	newID func() string
}

func New() *Overlay {
	return &Overlay{groups: map[string][]Comment{}, now: time.Now, newID: NewID}
}

// Inflate rebuilds an overlay from a snapshot. Threads with an empty target
// are skipped; repeated targets keep their first position.
func Inflate(threads []Thread) *Overlay {
	o := New()
	for _, t := range threads {
		if t.Target == "" {
			continue
		}
		if _, ok := o.groups[t.Target]; !ok {
			o.order = append(o.order, t.Target)
		}
		list := t.Comments
		if list == nil {
			list = []Comment{}
		}
		o.groups[t.Target] = append([]Comment(nil), list...)
	}
	return o
}

// AddResult reports the group a comment landed in and its new badge count.
type AddResult struct {
	GroupID string
	Comment Comment
	Count   int
}

// Add appends a comment to the block's group, minting a group id when groupID is empty.
func (o *Overlay) Add(blockID, groupID, content string) (AddResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return AddResult{}, ErrEmptyComment
	}
	if blockID == "" {
		return AddResult{}, ErrInvalidTarget
	}
	if groupID == "" {
		groupID = o.newID()
	}
	key := Target(blockID, groupID)
	c := Comment{
		ID:        o.newID(),
		Content:   content,
		CreatedAt: o.now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if _, ok := o.groups[key]; !ok {
		o.order = append(o.order, key)
	}
	o.groups[key] = append(o.groups[key], c)
	return AddResult{GroupID: groupID, Comment: c, Count: len(o.groups[key])}, nil
}

// RemoveResult tells the caller whether to clear the inline marker.
type RemoveResult struct {
	Remaining    int
	GroupRemoved bool
}

// Remove deletes one comment. A group left empty is dropped.
func (o *Overlay) Remove(blockID, groupID, commentID string) (RemoveResult, error) {
	key := Target(blockID, groupID)
	list, ok := o.groups[key]
	if !ok {
		return RemoveResult{}, ErrCommentNotFound
	}
	idx := -1
	for i, c := range list {
		if c.ID == commentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return RemoveResult{Remaining: len(list)}, ErrCommentNotFound
	}
	remaining := append(list[:idx:idx], list[idx+1:]...)
	if len(remaining) == 0 {
		o.drop(key)
		return RemoveResult{GroupRemoved: true}, nil
	}
	o.groups[key] = remaining
	return RemoveResult{Remaining: len(remaining)}, nil
}

// Clear deletes a group regardless of content. It reports whether the group existed.
func (o *Overlay) Clear(blockID, groupID string) bool {
	key := Target(blockID, groupID)
	if _, ok := o.groups[key]; !ok {
		return false
	}
	o.drop(key)
	return true
}

// Comments returns a copy of one group's comments.
func (o *Overlay) Comments(blockID, groupID string) []Comment {
	return append([]Comment(nil), o.groups[Target(blockID, groupID)]...)
}

func (o *Overlay) Count(blockID, groupID string) int {
	return len(o.groups[Target(blockID, groupID)])
}

// Len is the number of groups.
func (o *Overlay) Len() int { return len(o.order) }

// Snapshot flattens the overlay in insertion order.
func (o *Overlay) Snapshot() []Thread {
	out := make([]Thread, 0, len(o.order))
	for _, key := range o.order {
		out = append(out, Thread{Target: key, Comments: append([]Comment{}, o.groups[key]...)})
	}
	return out
}

func (o *Overlay) drop(key string) {
	delete(o.groups, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a random UUID, or "comment-" plus nine base-36 characters
// when the system random source is unavailable.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

func fallbackID() string {
	var b strings.Builder
	b.WriteString("comment-")
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
