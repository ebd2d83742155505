package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ojamarket/realtime-api/cache"
	"github.com/ojamarket/realtime-api/databases"
	"github.com/ojamarket/realtime-api/location"
	"github.com/ojamarket/realtime-api/models"
)

// locationRetention is how long agent position history is kept
const locationRetention = 30 * 24 * time.Hour

// unreadReminderAge is how long a chat notification may sit unread before the
// recipient gets an email nudge
const unreadReminderAge = time.Hour

// Scheduler runs the periodic background jobs. Jobs take a distributed cache
// lock first, so exactly one instance runs each job per tick.
type Scheduler struct {
	cron       *cron.Cron
	NDB        databases.NotificationDatabase
	UDB        databases.UserDatabase
	Location   *location.Service
	Cache      cache.Service
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(nDB databases.NotificationDatabase, uDB databases.UserDatabase, loc *location.Service, c cache.Service) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		NDB:        nDB,
		UDB:        uDB,
		Location:   loc,
		Cache:      c,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// nudge users with stale unread chats hourly
	_, err := s.cron.AddFunc("0 * * * *", s.sendUnreadChatReminders)
	if err != nil {
		zap.S().Errorw("failed to register unread reminder job", "error", err)
	}

	// purge old location history daily at 4 AM UTC
	_, err = s.cron.AddFunc("0 4 * * *", s.purgeLocationHistory)
	if err != nil {
		zap.S().Errorw("failed to register location purge job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("background scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("background scheduler stopped")
}

// tryLock takes the cross-instance job lock via SetNX. The lock expires on its
// own; jobs are idempotent so a crashed holder only delays the next run.
func (s *Scheduler) tryLock(ctx context.Context, job string, ttl time.Duration) bool {
	acquired, err := s.Cache.SetNX(ctx, "lock:job:"+job, s.instanceID, ttl)
	if err != nil {
		zap.S().Errorw("failed to acquire job lock", "job", job, "error", err)
		return false
	}
	if !acquired {
		zap.S().Debugw("job already running on another instance, skipping", "job", job)
	}
	return acquired
}

// sendUnreadChatReminders emails every user who has chat notifications that
// sat unread for over an hour. Each notification is reminded at most once.
func (s *Scheduler) sendUnreadChatReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !s.tryLock(ctx, "unread_chat_reminders", 10*time.Minute) {
		return
	}

	zap.S().Infow("running unread chat reminder job", "instance", s.instanceID)

	cutoff := primitive.NewDateTimeFromTime(time.Now().Add(-unreadReminderAge))
	filter := bson.M{
		"kind":      models.NotificationKindChatMessage,
		"read":      false,
		"reminded":  bson.M{"$ne": true},
		"createdAt": bson.M{"$lt": cutoff},
	}

	stale, err := s.NDB.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to find stale unread notifications", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	counts := make(map[string]int)
	for _, n := range stale {
		counts[n.RecipientID]++
	}

	sent := 0
	for recipientID, count := range counts {
		user, err := s.UDB.FindOne(ctx, bson.M{"_id": recipientID})
		if err != nil || user.Details.Email == "" {
			continue
		}
		if err := s.sendReminderEmail(user.Details.Email, user.Details.Name, count); err != nil {
			zap.S().Errorw("failed to send unread chat reminder", "userID", recipientID, "error", err)
			continue
		}
		sent++
	}

	if _, err := s.NDB.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"reminded": true}}); err != nil {
		zap.S().Errorw("failed to mark notifications reminded", "error", err)
	}

	zap.S().Infow("unread chat reminder job complete",
		"staleNotifications", len(stale),
		"emailsSent", sent,
	)
}

// purgeLocationHistory drops agent position samples past the retention window
func (s *Scheduler) purgeLocationHistory() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if !s.tryLock(ctx, "purge_location_history", 15*time.Minute) {
		return
	}

	zap.S().Infow("running location history purge job", "instance", s.instanceID)

	removed, err := s.Location.PurgeHistoryBefore(ctx, time.Now().Add(-locationRetention))
	if err != nil {
		zap.S().Errorw("failed to purge location history", "error", err)
		return
	}

	zap.S().Infow("location history purge complete", "removed", removed)
}

func (s *Scheduler) sendReminderEmail(toEmail, toName string, unreadCount int) error {
	from := mail.NewEmail("Oja Market", "no-reply@ojamarket.app")
	subject := "You have unread messages waiting"
	to := mail.NewEmail(toName, toEmail)
	plain := fmt.Sprintf("You have %d unread chat message(s) on your active orders. Open the app to catch up.", unreadCount)
	html := fmt.Sprintf(`<p>Hi %s,</p><p>You have <strong>%d</strong> unread chat message(s) on your active orders.</p><p>Open the app to catch up with your order chat.</p>`, toName, unreadCount)
	message := mail.NewSingleEmail(from, subject, to, plain, html)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}
