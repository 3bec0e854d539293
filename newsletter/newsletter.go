package newsletter

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"dropshare/model"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Redis keys
const (
	subscriberKeyPrefix = "newsletter:sub:"
	emailsKey           = "newsletter:emails"
	tokensKey           = "newsletter:tokens"
)

// analyticsDays is the width of the signup time series
const analyticsDays = 30

var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrNotSubscribed = errors.New("not subscribed")
)

var validate = validator.New()

// Mailer sends the welcome mail after a subscription becomes active
type Mailer interface {
	SendNewsletterWelcome(toEmail, unsubscribeToken string) error
}

// Store persists the subscriber list in Redis
type Store struct {
	rdb    *redis.Client
	mailer Mailer
	now    func() time.Time
}

// Option customises a Store
type Option func(*Store)

// WithMailer enables welcome mails
func WithMailer(m Mailer) Option {
	return func(s *Store) {
		s.mailer = m
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a store backed by rdb
func NewStore(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail lower-cases and validates an address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Subscribe adds email to the list. Subscribing an active address is a no-op and
// an unsubscribed one is reactivated. created reports whether the address became
// active because of this call.
func (s *Store) Subscribe(ctx context.Context, email, source string) (sub model.Subscriber, created bool, err error) {
	email, err = NormalizeEmail(email)
	if err != nil {
		return model.Subscriber{}, false, err
	}

	existing, err := s.get(ctx, email)
	switch {
	case err == nil && existing.Status == model.SubscriberActive:
		return existing, false, nil
	case err == nil:
		sub = existing
		sub.Status = model.SubscriberActive
		sub.SubscribedAt = s.now().UTC()
		sub.UnsubscribedAt = nil
		if source != "" {
			sub.Source = source
		}
	case errors.Is(err, ErrNotSubscribed):
		sub = model.Subscriber{
			Email:        email,
			Status:       model.SubscriberActive,
			Token:        uuid.New().String(),
			Source:       source,
			SubscribedAt: s.now().UTC(),
		}
	default:
		return model.Subscriber{}, false, err
	}

	if err := s.save(ctx, sub); err != nil {
		return model.Subscriber{}, false, err
	}

	log.Info().Str("email", email).Str("source", sub.Source).Msg("Newsletter subscription active")

	if s.mailer != nil {
		if err := s.mailer.SendNewsletterWelcome(email, sub.Token); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("Failed to send newsletter welcome mail")
		}
	}
	return sub, true, nil
}

// Unsubscribe marks email as unsubscribed. Repeating it is harmless.
func (s *Store) Unsubscribe(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	return s.unsubscribe(ctx, email)
}

// UnsubscribeByToken resolves the token from a welcome mail and unsubscribes its owner
func (s *Store) UnsubscribeByToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotSubscribed
	}
	email, err := s.rdb.HGet(ctx, tokensKey, token).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotSubscribed
	}
	if err != nil {
		return fmt.Errorf("resolve unsubscribe token: %w", err)
	}
	return s.unsubscribe(ctx, email)
}

func (s *Store) unsubscribe(ctx context.Context, email string) error {
	sub, err := s.get(ctx, email)
	if err != nil {
		return err
	}
	if sub.Status == model.SubscriberUnsubscribed {
		return nil
	}

	now := s.now().UTC()
	sub.Status = model.SubscriberUnsubscribed
	sub.UnsubscribedAt = &now
	if err := s.save(ctx, sub); err != nil {
		return err
	}

	log.Info().Str("email", email).Msg("Newsletter unsubscribed")
	return nil
}

// List returns every subscriber, oldest signup first
func (s *Store) List(ctx context.Context) ([]model.Subscriber, error) {
	emails, err := s.rdb.SMembers(ctx, emailsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	if len(emails) == 0 {
		return []model.Subscriber{}, nil
	}

	keys := make([]string, len(emails))
	for i, email := range emails {
		keys[i] = subscriberKeyPrefix + email
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}

	subs := make([]model.Subscriber, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var sub model.Subscriber
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			log.Warn().Err(err).Str("email", emails[i]).Msg("Skipping corrupt subscriber record")
			continue
		}
		subs = append(subs, sub)
	}

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].SubscribedAt.Equal(subs[j].SubscribedAt) {
			return subs[i].Email < subs[j].Email
		}
		return subs[i].SubscribedAt.Before(subs[j].SubscribedAt)
	})
	return subs, nil
}

// Analytics aggregates the list, with signups per day over the last 30 days
func (s *Store) Analytics(ctx context.Context) (model.NewsletterAnalytics, error) {
	subs, err := s.List(ctx)
	if err != nil {
		return model.NewsletterAnalytics{}, err
	}

	analytics := model.NewsletterAnalytics{
		Total:        len(subs),
		SignupsByDay: make([]model.TimeSeriesPoint, 0, analyticsDays),
	}
	signupsByDate := make(map[string]int64)
	for _, sub := range subs {
		if sub.Status == model.SubscriberActive {
			analytics.Active++
		} else {
			analytics.Unsubscribed++
		}
		signupsByDate[sub.SubscribedAt.UTC().Format("2006-01-02")]++
	}

	now := s.now().UTC()
	for i := analyticsDays - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		analytics.SignupsByDay = append(analytics.SignupsByDay, model.TimeSeriesPoint{
			Date:  date,
			Value: signupsByDate[date],
		})
	}
	return analytics, nil
}

// Export writes the list as CSV
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	subs, err := s.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"email", "status", "subscribed_at", "unsubscribed_at", "source"}); err != nil {
		return err
	}
	for _, sub := range subs {
		unsubscribedAt := ""
		if sub.UnsubscribedAt != nil {
			unsubscribedAt = sub.UnsubscribedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			sub.Email,
			sub.Status,
			sub.SubscribedAt.UTC().Format(time.RFC3339),
			unsubscribedAt,
			sub.Source,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Store) get(ctx context.Context, email string) (model.Subscriber, error) {
	raw, err := s.rdb.Get(ctx, subscriberKeyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Subscriber{}, ErrNotSubscribed
	}
	if err != nil {
		return model.Subscriber{}, fmt.Errorf("load subscriber: %w", err)
	}

	var sub model.Subscriber
	if err := json.Unmarshal(raw, &sub); err != nil {
		return model.Subscriber{}, fmt.Errorf("decode subscriber: %w", err)
	}
	return sub, nil
}

func (s *Store) save(ctx context.Context, sub model.Subscriber) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscriber: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, subscriberKeyPrefix+sub.Email, data, 0)
		pipe.SAdd(ctx, emailsKey, sub.Email)
		pipe.HSet(ctx, tokensKey, sub.Token, sub.Email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save subscriber: %w", err)
	}
	return nil
}
