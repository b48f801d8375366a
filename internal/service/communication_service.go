package service

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/internal/repository"
	"github.com/d60-Lab/contest-communication/internal/worker"
	"github.com/d60-Lab/contest-communication/pkg/database"
	"github.com/d60-Lab/contest-communication/pkg/errs"
	"github.com/d60-Lab/contest-communication/pkg/logger"
)

// CommunicationService 公告与提问的查询/命令操作。
//
// Every operation acquires a pooled connection and runs its statements on the
// dispatcher, so the calling goroutine only waits on a future. Failures come
// back marked errs.ErrInternal; not-found outcomes are plain values.
type CommunicationService interface {
	ListAnnouncements(ctx context.Context) ([]model.Announcement, error)
	// ListQuestions returns every question for an admin token and only the
	// token's own questions otherwise.
	ListQuestions(ctx context.Context, token string) ([]model.Question, error)
	AddQuestion(ctx context.Context, token string, q model.AskQuestion) (model.Question, error)
	// AddAnnouncement does not check that the token belongs to an admin; the
	// caller must do so with IsAdmin before calling it.
	AddAnnouncement(ctx context.Context, a model.AddAnnouncement) error
	// AnswerQuestion reports false when no question has the id.
	AnswerQuestion(ctx context.Context, token string, id int64, content string) (bool, error)
	IsAdmin(ctx context.Context, token string) (bool, error)
}

// AnnouncementCache is an optional read-through cache for the announcement list.
//
// Get reports the generation seen on a miss and Set stores the list only if
// no Invalidate happened since, so a list read before a concurrent insert is
// never cached after that insert.
type AnnouncementCache interface {
	Get(ctx context.Context) (list []model.Announcement, gen int64, hit bool)
	Set(ctx context.Context, gen int64, list []model.Announcement)
	Invalidate(ctx context.Context)
}

type communicationService struct {
	pool          *database.Pool
	dispatcher    *worker.Dispatcher
	announcements repository.AnnouncementRepository
	questions     repository.QuestionRepository
	users         repository.UserRepository
	cache         AnnouncementCache
}

// Option 可选依赖
type Option func(*communicationService)

// WithAnnouncementCache 启用公告列表缓存
func WithAnnouncementCache(c AnnouncementCache) Option {
	return func(s *communicationService) { s.cache = c }
}

func NewCommunicationService(pool *database.Pool, dispatcher *worker.Dispatcher, opts ...Option) CommunicationService {
	s := &communicationService{
		pool:          pool,
		dispatcher:    dispatcher,
		announcements: repository.NewAnnouncementRepository(),
		questions:     repository.NewQuestionRepository(),
		users:         repository.NewUserRepository(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes fn on a worker with a connection checked out for its duration.
func run[T any](ctx context.Context, s *communicationService, op string, fn func(db *gorm.DB) (T, error)) (T, error) {
	v, err := worker.Do(ctx, s.dispatcher, func(ctx context.Context) (T, error) {
		var out T
		err := s.pool.WithConn(ctx, func(db *gorm.DB) error {
			var err error
			out, err = fn(db)
			return err
		})
		return out, err
	})
	if err != nil {
		logger.Error("communication operation failed", zap.String("op", op), zap.Error(err))
		var zero T
		return zero, errs.Internal(err)
	}
	return v, nil
}

func (s *communicationService) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	var gen int64
	if s.cache != nil {
		list, g, ok := s.cache.Get(ctx)
		if ok {
			return list, nil
		}
		// generation 必须在查库之前取得
		gen = g
	}
	list, err := run(ctx, s, "list_announcements", s.announcements.List)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, gen, list)
	}
	return list, nil
}

func (s *communicationService) IsAdmin(ctx context.Context, token string) (bool, error) {
	return run(ctx, s, "is_admin", func(db *gorm.DB) (bool, error) {
		return s.users.IsAdmin(db, token)
	})
}

// ListQuestions resolves the admin flag first and then reads the rows; a
// concurrent change to the token's flag between the two is not guarded.
func (s *communicationService) ListQuestions(ctx context.Context, token string) ([]model.Question, error) {
	admin, err := s.IsAdmin(ctx, token)
	if err != nil {
		return nil, err
	}
	return run(ctx, s, "list_questions", func(db *gorm.DB) ([]model.Question, error) {
		return s.questions.List(db, token, admin)
	})
}

func (s *communicationService) AddQuestion(ctx context.Context, token string, q model.AskQuestion) (model.Question, error) {
	return run(ctx, s, "add_question", func(db *gorm.DB) (model.Question, error) {
		id, err := s.questions.Create(db, token, q.Content)
		if err != nil {
			return model.Question{}, err
		}
		created, found, err := s.questions.Get(db, id)
		if err != nil {
			return model.Question{}, err
		}
		if !found {
			return model.Question{}, errors.Newf("question %d missing right after insert", id)
		}
		return created, nil
	})
}

func (s *communicationService) AddAnnouncement(ctx context.Context, a model.AddAnnouncement) error {
	_, err := run(ctx, s, "add_announcement", func(db *gorm.DB) (int64, error) {
		return s.announcements.Create(db, a)
	})
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return nil
}

func (s *communicationService) AnswerQuestion(ctx context.Context, token string, id int64, content string) (bool, error) {
	return run(ctx, s, "answer_question", func(db *gorm.DB) (bool, error) {
		return s.questions.Answer(db, token, id, content)
	})
}
