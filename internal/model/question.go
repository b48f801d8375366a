package model

import "database/sql"

// Answer 管理员的回答（不含回答者 token）
type Answer struct {
	// Date is UTC in "YYYY-MM-DD HH:MM:SS".
	Date string `json:"date"`
	// Content is Markdown source.
	Content string `json:"content"`
}

// Question 选手提问。Answer 为 nil 表示尚未回答。
type Question struct {
	ID int64 `json:"id"`
	// Creator is the submitter's raw token.
	Creator string `json:"creator"`
	// Content is plain text, not Markdown.
	Content string  `json:"content"`
	Date    string  `json:"date"`
	Answer  *Answer `json:"answer"`
}

// QuestionRow questions 表的一行；answer 列为 NULL 表示未回答
type QuestionRow struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Creator    string         `gorm:"column:creator"`
	Content    string         `gorm:"column:content"`
	Date       string         `gorm:"column:date"`
	Answer     sql.NullString `gorm:"column:answer"`
	AnswerDate sql.NullString `gorm:"column:answerDate"`
	Answerer   sql.NullString `gorm:"column:answerer"`
}

func (QuestionRow) TableName() string { return "questions" }

// Question maps the row to its public shape. The answer is present iff the
// answer column is not NULL; the answerer is never exposed.
func (r QuestionRow) Question() Question {
	q := Question{
		ID:      r.ID,
		Creator: r.Creator,
		Content: r.Content,
		Date:    r.Date,
	}
	if r.Answer.Valid {
		q.Answer = &Answer{Content: r.Answer.String, Date: r.AnswerDate.String}
	}
	return q
}

// AskQuestion 提问请求值对象
type AskQuestion struct {
	Content string `json:"content" binding:"required,notblank"`
}

// AnswerQuestion 回答请求值对象
type AnswerQuestion struct {
	Content string `json:"content" binding:"required,notblank"`
}
