package repository

import (
	"gorm.io/gorm"

	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/pkg/errs"
)

// QuestionRepository 提问读写
type QuestionRepository interface {
	// List returns the questions created by token, or all of them when all is
	// true, oldest first.
	List(db *gorm.DB, token string, all bool) ([]model.Question, error)
	Create(db *gorm.DB, token, content string) (int64, error)
	// Get reports found=false when no row has the id.
	Get(db *gorm.DB, id int64) (q model.Question, found bool, err error)
	// Answer overwrites any previous answer; it reports whether a row matched.
	Answer(db *gorm.DB, token string, id int64, content string) (bool, error)
}

type questionRepository struct{}

func NewQuestionRepository() QuestionRepository { return questionRepository{} }

const selectQuestion = `
            SELECT id, creator, content, date, answer, answerDate
            FROM questions`

func (questionRepository) List(db *gorm.DB, token string, all bool) ([]model.Question, error) {
	var rows []model.QuestionRow
	// 作用域谓词与排序在同一条语句中完成
	if err := db.Raw(selectQuestion+`
            WHERE creator = ? OR ?
            ORDER BY date, id`, token, all).Scan(&rows).Error; err != nil {
		return nil, errs.Storage(err, "list questions")
	}
	res := make([]model.Question, len(rows))
	for i, r := range rows {
		res[i] = r.Question()
	}
	return res, nil
}

func (questionRepository) Create(db *gorm.DB, token, content string) (int64, error) {
	row := &model.QuestionRow{Creator: token, Content: content}
	if err := db.Select("creator", "content").Create(row).Error; err != nil {
		return 0, errs.Storage(err, "insert question")
	}
	return row.ID, nil
}

func (questionRepository) Get(db *gorm.DB, id int64) (model.Question, bool, error) {
	var rows []model.QuestionRow
	if err := db.Raw(selectQuestion+`
            WHERE id = ?`, id).Scan(&rows).Error; err != nil {
		return model.Question{}, false, errs.Storage(err, "get question")
	}
	if len(rows) == 0 {
		return model.Question{}, false, nil
	}
	return rows[0].Question(), true, nil
}

func (questionRepository) Answer(db *gorm.DB, token string, id int64, content string) (bool, error) {
	res := db.Exec(`
            UPDATE questions
            SET answer = ?, answerDate = CURRENT_TIMESTAMP, answerer = ?
            WHERE id = ?`, content, token, id)
	if res.Error != nil {
		return false, errs.Storage(res.Error, "answer question")
	}
	return res.RowsAffected == 1, nil
}
