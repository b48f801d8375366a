package repository

import (
	"gorm.io/gorm"

	"github.com/d60-Lab/contest-communication/internal/model"
	"github.com/d60-Lab/contest-communication/pkg/errs"
)

// AnnouncementRepository 公告读写；所有方法都在一条已签出的连接上同步执行
type AnnouncementRepository interface {
	List(db *gorm.DB) ([]model.Announcement, error)
	Create(db *gorm.DB, in model.AddAnnouncement) (int64, error)
}

type announcementRepository struct{}

func NewAnnouncementRepository() AnnouncementRepository { return announcementRepository{} }

// List returns every announcement, oldest first. id breaks ties between rows
// posted within the same second so repeated reads keep the same order.
func (announcementRepository) List(db *gorm.DB) ([]model.Announcement, error) {
	var rows []model.AnnouncementRow
	if err := db.Raw(`
            SELECT id, severity, title, content, creator, date
            FROM announcements
            ORDER BY date, id`).Scan(&rows).Error; err != nil {
		return nil, errs.Storage(err, "list announcements")
	}
	res := make([]model.Announcement, len(rows))
	for i, r := range rows {
		res[i] = r.Announcement()
	}
	return res, nil
}

func (announcementRepository) Create(db *gorm.DB, in model.AddAnnouncement) (int64, error) {
	row := &model.AnnouncementRow{Severity: in.Severity, Title: in.Title, Content: in.Content, Creator: in.Token}
	// date 由存储层默认值填充
	if err := db.Select("severity", "title", "content", "creator").Create(row).Error; err != nil {
		return 0, errs.Storage(err, "insert announcement")
	}
	return row.ID, nil
}
