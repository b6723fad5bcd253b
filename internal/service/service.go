// Package service implements the social-graph operations on top of the
// repositories. Every mutating method takes the acting identity explicitly.
package service

import (
	"context"
	"errors"

	"socialgraph/internal/models"
	"socialgraph/internal/observability"
	"socialgraph/internal/repository"
)

var errUsernameExhausted = errors.New("no free username candidate")

// ViewInvalidator is told which view paths became stale after a commit.
type ViewInvalidator interface {
	Invalidate(paths ...string)
}

// NotificationDelivery pushes a committed notification to its recipient.
type NotificationDelivery interface {
	Deliver(n *models.Notification)
}

// storeError classifies err as a store failure unless it already carries an
// application error code.
func storeError(message string, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStoreError(message, err)
}

// committer runs a unit of work and hands any notification it created to
// realtime delivery once the transaction is durable.
type committer struct {
	uow      repository.UnitOfWork
	delivery NotificationDelivery
}

func (c committer) commit(ctx context.Context, writes []repository.Write, note *plannedNotification) error {
	if note != nil {
		writes = append(writes, note.write)
	}
	if err := c.uow.Commit(ctx, writes...); err != nil {
		return err
	}
	if note != nil {
		observability.NotificationsCreated.WithLabelValues(string(note.row.Type)).Inc()
		if c.delivery != nil {
			c.delivery.Deliver(note.row)
		}
	}
	return nil
}

func invalidate(v ViewInvalidator, paths ...string) {
	if v != nil {
		v.Invalidate(paths...)
	}
}
