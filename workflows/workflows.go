// Package workflows holds the background functions that were event- or
// cron-triggered in the hosted workflow engine: identity-provider user
// sync, connection-request mails, scheduled story deletion and the daily
// unseen-message digest.
package workflows

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buzzconnect/mailer"
	"buzzconnect/models"
	"buzzconnect/scheduler"
	"buzzconnect/store"
)

// Job kinds dispatched through the scheduler.
const (
	KindConnectionEmail    = "connection.email"
	KindConnectionReminder = "connection.reminder"
	KindStoryDelete        = "story.delete"
)

// ReminderDelay is the fixed wait before a connection-request reminder and
// before a story is deleted.
const ReminderDelay = 24 * time.Hour

type Service struct {
	store  store.Store
	mailer mailer.Mailer
	sched  *scheduler.Scheduler
	now    func() time.Time
}

func New(st store.Store, m mailer.Mailer, sched *scheduler.Scheduler) *Service {
	s := &Service{
		store:  st,
		mailer: m,
		sched:  sched,
		now:    time.Now,
	}
	sched.Handle(KindConnectionEmail, s.sendConnectionEmail)
	sched.Handle(KindConnectionReminder, s.sendConnectionReminder)
	sched.Handle(KindStoryDelete, s.deleteStory)
	return s
}

// SetClock replaces the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ----- Identity provider lifecycle -----

// SyncUserCreated provisions a local user from a provider sign-up event.
// The username comes from the email local part; a random numeric suffix is
// appended when it is already taken.
func (s *Service) SyncUserCreated(ctx context.Context, id, email, firstName, lastName, imageURL string) error {
	username := email
	if at := strings.Index(email, "@"); at > 0 {
		username = email[:at]
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		username = fmt.Sprintf("%s%d", username, rand.Intn(10000))
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return s.store.CreateUser(ctx, &models.User{
		ID:             id,
		Email:          email,
		FullName:       strings.TrimSpace(firstName + " " + lastName),
		Username:       username,
		Bio:            models.DefaultBio,
		ProfilePicture: imageURL,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	})
}

// SyncUserUpdated patches email, name and picture from a provider profile
// change event.
func (s *Service) SyncUserUpdated(ctx context.Context, id, email, firstName, lastName, imageURL string) error {
	fullName := strings.TrimSpace(firstName + " " + lastName)
	_, err := s.store.UpdateUser(ctx, id, store.UserUpdate{
		Email:          &email,
		FullName:       &fullName,
		ProfilePicture: &imageURL,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// SyncUserDeleted cascades a provider deletion: connections, relationship
// list memberships, posts, stories, messages, push subscriptions, then the
// user document itself.
func (s *Service) SyncUserDeleted(ctx context.Context, id string) error {
	if err := s.store.DeleteConnectionsForUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.RemoveUserFromAllLists(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePostsByUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteStoriesByUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteMessagesForUser(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePushSubscriptionsForUser(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, id)
}

// ----- Event entry points called by the API layer -----

// ConnectionRequested schedules the immediate notification mail and the
// 24-hour reminder for a new connection request.
func (s *Service) ConnectionRequested(ctx context.Context, connectionID primitive.ObjectID) error {
	payload := map[string]string{"connectionId": connectionID.Hex()}
	if err := s.sched.Schedule(ctx, KindConnectionEmail, payload, s.now()); err != nil {
		return err
	}
	return s.sched.Schedule(ctx, KindConnectionReminder, payload, s.now().Add(ReminderDelay))
}

// StoryCreated schedules the story's deletion after its 24-hour lifetime.
func (s *Service) StoryCreated(ctx context.Context, storyID primitive.ObjectID) error {
	payload := map[string]string{"storyId": storyID.Hex()}
	return s.sched.Schedule(ctx, KindStoryDelete, payload, s.now().Add(ReminderDelay))
}

// ----- Job handlers -----

type connectionMail struct {
	status string
	from   *models.User
	to     *models.User
}

func (s *Service) loadConnectionMail(ctx context.Context, payload map[string]string) (*connectionMail, error) {
	id, err := primitive.ObjectIDFromHex(payload["connectionId"])
	if err != nil {
		return nil, fmt.Errorf("bad connectionId: %w", err)
	}

	conn, err := s.store.GetConnection(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	from, err := s.store.GetUser(ctx, conn.FromUserID)
	if err != nil {
		return nil, err
	}
	to, err := s.store.GetUser(ctx, conn.ToUserID)
	if err != nil {
		return nil, err
	}
	return &connectionMail{status: conn.Status, from: from, to: to}, nil
}

func (s *Service) sendConnectionEmail(ctx context.Context, payload map[string]string) error {
	c, err := s.loadConnectionMail(ctx, payload)
	if err != nil || c == nil {
		return err
	}

	return s.mailer.Send(mailer.Email{
		To:      c.to.Email,
		Subject: "New Connection Request",
		Body: fmt.Sprintf("Hi %s,\nYou have a new connection request from %s (@%s).",
			c.to.FullName, c.from.FullName, c.from.Username),
	})
}

func (s *Service) sendConnectionReminder(ctx context.Context, payload map[string]string) error {
	c, err := s.loadConnectionMail(ctx, payload)
	if err != nil || c == nil {
		return err
	}
	if c.status == models.ConnectionAccepted {
		return nil
	}

	return s.mailer.Send(mailer.Email{
		To:      c.to.Email,
		Subject: "Reminder: Pending Connection Request",
		Body: fmt.Sprintf("Hi %s,\nYou still have a pending connection request from %s (@%s).",
			c.to.FullName, c.from.FullName, c.from.Username),
	})
}

func (s *Service) deleteStory(ctx context.Context, payload map[string]string) error {
	id, err := primitive.ObjectIDFromHex(payload["storyId"])
	if err != nil {
		return fmt.Errorf("bad storyId: %w", err)
	}
	return s.store.DeleteStory(ctx, id)
}

// ----- Daily cron -----

// SendUnseenDigest mails each recipient of unseen messages a single digest
// with their unseen count. Wired to the daily cron trigger.
func (s *Service) SendUnseenDigest(ctx context.Context) error {
	counts, err := s.store.CountUnseenByRecipient(ctx)
	if err != nil {
		return err
	}

	for userID, count := range counts {
		user, err := s.store.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		err = s.mailer.Send(mailer.Email{
			To:      user.Email,
			Subject: fmt.Sprintf("You have %d unseen messages", count),
			Body: fmt.Sprintf("Hi %s,\nYou have %d unread messages waiting for you.",
				user.FullName, count),
		})
		if err != nil {
			log.Printf("[workflows] digest mail to %s: %v", user.Email, err)
		}
	}
	return nil
}
