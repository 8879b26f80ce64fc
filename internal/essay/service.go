package essay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/comments"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/entity"
	essayrepo "github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay/repo"
	"github.com/ovaphlow/pitchfork/service-redacao-go/pkg/utilities"
)

// DefaultProfessorID is used when an essay is created without a professor.
const DefaultProfessorID = "68e8b75f0ccde9fbb554f234"

var (
	ErrNotFound        = essayrepo.ErrNotFound
	ErrAlunoRequired   = errors.New("aluno is required")
	ErrEmptyComment    = comments.ErrEmptyComment
	ErrInvalidTarget   = comments.ErrInvalidTarget
	ErrCommentNotFound = comments.ErrCommentNotFound

	ErrMalformedComments = entity.ErrMalformedComments
)

// Repository is the storage the service needs; *essayrepo.EssayRepo satisfies it.
type Repository interface {
	Create(ctx context.Context, e *entity.Essay) error
	GetByID(ctx context.Context, id string) (*entity.Essay, error)
	Update(ctx context.Context, id string, p entity.Patch) (*entity.Essay, error)
	List(ctx context.Context, f entity.Filter) ([]*entity.Essay, error)
}

// EssayService applies creation defaults and owns the comment overlay saves.
type EssayService struct {
	repo             Repository
	defaultProfessor string
	now              func() time.Time

	// serializes read-modify-write of comment threads within this process
	commentsMu sync.Mutex
}

func NewEssayService(r Repository, defaultProfessor string) *EssayService {
	if defaultProfessor == "" {
		defaultProfessor = DefaultProfessorID
	}
	return &EssayService{repo: r, defaultProfessor: defaultProfessor, now: time.Now}
}

// Create fills id, professor, titulo, status and timestamp defaults and stores the essay.
func (s *EssayService) Create(ctx context.Context, in *entity.Essay) (*entity.Essay, error) {
	e := *in
	if e.Aluno == "" {
		return nil, ErrAlunoRequired
	}
	if e.ID == "" {
		e.ID = utilities.NewSnowflakeID()
	}
	if e.Professor == "" {
		e.Professor = s.defaultProfessor
	}
	if e.Titulo == "" {
		e.Titulo = entity.DefaultTitulo
	}
	if e.Status == "" {
		e.Status = entity.DefaultStatus
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	if err := s.repo.Create(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *EssayService) Get(ctx context.Context, id string) (*entity.Essay, error) {
	return s.repo.GetByID(ctx, id)
}

// Update leaves every field the patch does not set untouched.
func (s *EssayService) Update(ctx context.Context, id string, p entity.Patch) (*entity.Essay, error) {
	return s.repo.Update(ctx, id, p)
}

func (s *EssayService) List(ctx context.Context, f entity.Filter) ([]*entity.Essay, error) {
	return s.repo.List(ctx, f)
}

// CommentAdded is the outcome of AddComment.
type CommentAdded struct {
	GroupID string             `json:"groupId"`
	Count   int                `json:"count"`
	Comment comments.Comment   `json:"comment"`
	Thread  []comments.Comment `json:"comments"`
}

// AddComment appends a comment to a block's group and saves the essay data.
func (s *EssayService) AddComment(ctx context.Context, essayID, blockID, groupID, content string) (*CommentAdded, error) {
	var out *CommentAdded
	err := s.mutateComments(ctx, essayID, func(o *comments.Overlay) (bool, error) {
		res, err := o.Add(blockID, groupID, content)
		if err != nil {
			return false, err
		}
		out = &CommentAdded{
			GroupID: res.GroupID,
			Count:   res.Count,
			Comment: res.Comment,
			Thread:  o.Comments(blockID, res.GroupID),
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveComment deletes one comment; a group left empty is dropped from the data.
func (s *EssayService) RemoveComment(ctx context.Context, essayID, blockID, groupID, commentID string) (comments.RemoveResult, error) {
	var out comments.RemoveResult
	err := s.mutateComments(ctx, essayID, func(o *comments.Overlay) (bool, error) {
		res, err := o.Remove(blockID, groupID, commentID)
		if err != nil {
			return false, err
		}
		out = res
		return true, nil
	})
	return out, err
}

// ClearComments deletes a whole group.
func (s *EssayService) ClearComments(ctx context.Context, essayID, blockID, groupID string) error {
	return s.mutateComments(ctx, essayID, func(o *comments.Overlay) (bool, error) {
		if !o.Clear(blockID, groupID) {
			return false, ErrCommentNotFound
		}
		return true, nil
	})
}

// Comments returns the essay's threads in stored order.
func (s *EssayService) Comments(ctx context.Context, essayID string) ([]comments.Thread, error) {
	e, err := s.repo.GetByID(ctx, essayID)
	if err != nil {
		return nil, err
	}
	p, err := entity.DecodePayload(e.Data)
	if err != nil {
		return nil, fmt.Errorf("decode essay data: %w", err)
	}
	return comments.Inflate(p.Comments).Snapshot(), nil
}

func (s *EssayService) mutateComments(ctx context.Context, essayID string, fn func(*comments.Overlay) (bool, error)) error {
	s.commentsMu.Lock()
	defer s.commentsMu.Unlock()

	e, err := s.repo.GetByID(ctx, essayID)
	if err != nil {
		return err
	}
	p, err := entity.DecodePayload(e.Data)
	if err != nil {
		return fmt.Errorf("decode essay data: %w", err)
	}
	o := comments.Inflate(p.Comments)
	changed, err := fn(o)
	if err != nil || !changed {
		return err
	}
	p.Comments = o.Snapshot()
	p.SavedAt = s.now().UTC().Format("2006-01-02T15:04:05.000Z")
	raw, err := p.Encode()
	if err != nil {
		return fmt.Errorf("encode essay data: %w", err)
	}
	_, err = s.repo.Update(ctx, essayID, entity.Patch{Data: raw})
	return err
}
