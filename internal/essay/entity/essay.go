package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/comments"
)

const (
	DefaultTitulo = "Nova Redação"
	DefaultStatus = "Não enviada"

	StatusRascunho  = "Rascunho"
	StatusEnviada   = "Enviada"
	StatusCorrecao  = "Correção"
	StatusCorrigida = "Corrigida"
)

// Essay is one document of the `redacoes` collection.
type Essay struct {
	ID        string          `json:"_id"`
	Aluno     string          `json:"aluno"`
	Professor string          `json:"professor"`
	Turma     string          `json:"turma,omitempty"`
	Titulo    string          `json:"titulo"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Patch is a partial update; nil fields (absent or null in JSON) stay unchanged.
type Patch struct {
	Aluno     *string         `json:"aluno"`
	Professor *string         `json:"professor"`
	Turma     *string         `json:"turma"`
	Titulo    *string         `json:"titulo"`
	Status    *string         `json:"status"`
	Data      json.RawMessage `json:"data"`
	Timestamp *time.Time      `json:"timestamp"`
}

// HasData reports whether the patch carries a non-null data value.
func (p Patch) HasData() bool {
	return len(p.Data) > 0 && !bytes.Equal(bytes.TrimSpace(p.Data), []byte("null"))
}

// Filter narrows List; empty fields match everything.
type Filter struct {
	Aluno string
}

// ErrMalformedComments is returned for data whose comments value is not a
// list of threads. Such data must not be rewritten.
var ErrMalformedComments = errors.New("essay data has malformed comments")

// Payload is the conventional shape of Essay.Data. Keys other than editor,
// comments and savedAt are carried through untouched.
type Payload struct {
	Editor   json.RawMessage
	Comments []comments.Thread
	SavedAt  string
	extra    map[string]json.RawMessage
}

// DecodePayload parses essay data. Empty or null data yields an empty payload;
// a null comments value reads as no comments.
func DecodePayload(raw json.RawMessage) (*Payload, error) {
	p := &Payload{extra: map[string]json.RawMessage{}}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return p, nil
	}
	if err := json.Unmarshal(trimmed, &p.extra); err != nil {
		return nil, err
	}
	if v, ok := p.extra["editor"]; ok {
		p.Editor = v
		delete(p.extra, "editor")
	}
	if v, ok := p.extra["comments"]; ok {
		if err := json.Unmarshal(v, &p.Comments); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedComments, err)
		}
		delete(p.extra, "comments")
	}
	if v, ok := p.extra["savedAt"]; ok {
		_ = json.Unmarshal(v, &p.SavedAt)
		delete(p.extra, "savedAt")
	}
	return p, nil
}

// Encode serializes the payload; comments is always an array.
func (p *Payload) Encode() (json.RawMessage, error) {
	out := make(map[string]any, len(p.extra)+3)
	for k, v := range p.extra {
		out[k] = v
	}
	if len(p.Editor) > 0 {
		out["editor"] = p.Editor
	}
	threads := p.Comments
	if threads == nil {
		threads = []comments.Thread{}
	}
	out["comments"] = threads
	if p.SavedAt != "" {
		out["savedAt"] = p.SavedAt
	}
	// editor HTML (marks, entities) must come back exactly as stored
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
