package memory

import "talksphere/internal/repository"

// NewSet returns empty in-process stores for development and tests.
func NewSet() repository.Set {
	comments := NewCommentStore()
	return repository.Set{
		Comments:      comments,
		Posts:         NewPostStore(comments),
		Users:         NewUserStore(),
		Reports:       NewReportStore(),
		Announcements: NewAnnouncementStore(),
		Notifications: NewNotificationStore(),
		DeviceTokens:  NewDeviceTokenStore(),
	}
}
