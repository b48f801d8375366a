package model

// User users 表的一行。由外部流程预置，本服务只读（Create 仅供工具与测试使用）。
type User struct {
	Token   string `gorm:"column:token"`
	IsAdmin int    `gorm:"column:isAdmin"`
}

func (User) TableName() string { return "users" }
