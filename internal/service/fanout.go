package service

import (
	"socialgraph/internal/models"
	"socialgraph/internal/repository"
)

// plannedNotification is a notification insert together with the row it
// will write, so the row can be delivered after commit.
type plannedNotification struct {
	write repository.Write
	row   *models.Notification
}

// planNotification is the only place notifications are created. It plans
// nothing when the recipient is the actor.
func planNotification(kind models.NotificationType, recipientID, actorID string, postID, commentID *string) (*plannedNotification, bool) {
	if recipientID == "" || recipientID == actorID {
		return nil, false
	}
	row := &models.Notification{
		Type:      kind,
		UserID:    recipientID,
		CreatorID: actorID,
		PostID:    postID,
		CommentID: commentID,
	}
	return &plannedNotification{write: repository.InsertNotification(row), row: row}, true
}
