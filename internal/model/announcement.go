package model

// Announcement 公告的公开信息（不含发布者 token）
type Announcement struct {
	ID int64 `json:"id"`
	// Severity is a presentation tag (bootstrap class names such as danger,
	// warning, primary); it is not validated against a fixed set.
	Severity string `json:"severity"`
	Title    string `json:"title"`
	// Content is Markdown source.
	Content string `json:"content"`
	// Date is UTC in "YYYY-MM-DD HH:MM:SS", assigned by storage.
	Date string `json:"date"`
}

// AnnouncementRow announcements 表的一行
type AnnouncementRow struct {
	ID       int64  `gorm:"column:id;primaryKey"`
	Severity string `gorm:"column:severity"`
	Title    string `gorm:"column:title"`
	Content  string `gorm:"column:content"`
	Creator  string `gorm:"column:creator"`
	Date     string `gorm:"column:date"`
}

func (AnnouncementRow) TableName() string { return "announcements" }

// Announcement drops the creator token.
func (r AnnouncementRow) Announcement() Announcement {
	return Announcement{
		ID:       r.ID,
		Severity: r.Severity,
		Title:    r.Title,
		Content:  r.Content,
		Date:     r.Date,
	}
}

// AddAnnouncement 发布公告的请求值对象；Token 为发布者（须由调用方确认是管理员）
type AddAnnouncement struct {
	Severity string `json:"severity" binding:"required"`
	Title    string `json:"title" binding:"required,notblank"`
	Content  string `json:"content" binding:"required,notblank"`
	Token    string `json:"token" binding:"required"`
}
