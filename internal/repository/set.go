package repository

import "github.com/jmoiron/sqlx"

// Set bundles one implementation of every store the services need.
type Set struct {
	Comments      CommentRepository
	Posts         PostRepository
	Users         UserRepository
	Reports       ReportRepository
	Announcements AnnouncementRepository
	Notifications NotificationRepository
	DeviceTokens  DeviceTokenRepository
}

// NewPostgresSet returns the sqlx-backed stores sharing one connection pool.
func NewPostgresSet(db *sqlx.DB) Set {
	return Set{
		Comments:      NewCommentRepository(db),
		Posts:         NewPostRepository(db),
		Users:         NewUserRepository(db),
		Reports:       NewReportRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Notifications: NewNotificationRepository(db),
		DeviceTokens:  NewDeviceTokenRepository(db),
	}
}
