package notify

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/recipebook/recipebook-server/internal/domain"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 30 * time.Second

// Notifier queues messages and delivers them on a background worker.
type Notifier struct {
	mailer    Mailer
	clientURL string
	logger    *slog.Logger

	mu     sync.Mutex
	queue  chan Message
	closed bool
	done   chan struct{}
}

// NewNotifier creates a notifier and starts its worker. Links in messages
// point at clientURL.
func NewNotifier(mailer Mailer, clientURL string, queueSize int, logger *slog.Logger) *Notifier {
	if queueSize <= 0 {
		queueSize = 100
	}
	n := &Notifier{
		mailer:    mailer,
		clientURL: clientURL,
		logger:    logger,
		queue:     make(chan Message, queueSize),
		done:      make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.done)
	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := n.mailer.Send(ctx, msg)
		cancel()
		if err != nil {
			n.log().Warn("notification delivery failed",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
			continue
		}
		n.log().Debug("notification delivered", "to", msg.To, "subject", msg.Subject)
	}
}

// Enqueue schedules msg for delivery. It never blocks: when the queue is
// full or the notifier is shut down the message is dropped and false is
// returned.
func (n *Notifier) Enqueue(msg Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || msg.To == "" {
		return false
	}
	select {
	case n.queue <- msg:
		return true
	default:
		n.log().Warn("notification queue full, dropping message", "to", msg.To, "subject", msg.Subject)
		return false
	}
}

// Shutdown stops accepting messages and waits for queued ones to be
// delivered or for ctx to end.
func (n *Notifier) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) log() *slog.Logger {
	if n.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return n.logger
}

func (n *Notifier) enqueueRendered(to, subject, tmpl string, data mailData) {
	body, err := render(tmpl, data)
	if err != nil {
		n.log().Error("render notification", "template", tmpl, "error", err)
		return
	}
	n.Enqueue(Message{To: to, Subject: subject, HTML: body})
}

// SendVerification emails the link that confirms u's address.
func (n *Notifier) SendVerification(u *domain.User, token string, ttl time.Duration) {
	n.enqueueRendered(u.Email, "Welcome to RecipeBook - Verify Your Email", "verify", mailData{
		Name:    displayName(u),
		URL:     n.clientURL + "/verify-email/" + token,
		Expires: humanDuration(ttl),
	})
}

// SendPasswordReset emails a password reset link.
func (n *Notifier) SendPasswordReset(u *domain.User, token string, ttl time.Duration) {
	n.enqueueRendered(u.Email, "RecipeBook Password Reset", "reset", mailData{
		Name:    displayName(u),
		URL:     n.clientURL + "/reset-password/" + token,
		Expires: humanDuration(ttl),
	})
}

// SendRecipeShared tells to that owner shared r with them.
func (n *Notifier) SendRecipeShared(to string, owner *domain.User, r *domain.Recipe, perm domain.Permission, note string) {
	n.enqueueRendered(to, displayName(owner)+" shared a recipe with you", "shared", mailData{
		Owner:      displayName(owner),
		Title:      r.Title,
		Permission: string(perm),
		Note:       note,
		URL:        n.clientURL + "/recipes/" + r.ID,
	})
}

// SendNewComment tells the recipe owner about a comment.
func (n *Notifier) SendNewComment(owner, author *domain.User, r *domain.Recipe, text string) {
	n.enqueueRendered(owner.Email, "New comment on "+r.Title, "comment", mailData{
		Actor: displayName(author),
		Title: r.Title,
		Text:  text,
		URL:   n.clientURL + "/recipes/" + r.ID,
	})
}

// SendNewFollower tells target that follower started following them.
func (n *Notifier) SendNewFollower(target, follower *domain.User) {
	profile := n.clientURL + "/users/" + follower.ID
	if follower.Username != "" {
		profile = n.clientURL + "/u/" + follower.Username
	}
	n.enqueueRendered(target.Email, displayName(follower)+" is following you", "follower", mailData{
		Actor: displayName(follower),
		URL:   profile,
	})
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%(24*time.Hour) == 0:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "24 hours"
		}
		return strconv.Itoa(days) + " days"
	case d%time.Hour == 0:
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return strconv.Itoa(hours) + " hours"
	default:
		return d.String()
	}
}
