package notify

import (
	"context"

	"github.com/oksasatya/go-user-session/internal/application"
	"github.com/oksasatya/go-user-session/internal/domain/entity"
	"github.com/oksasatya/go-user-session/pkg/mailer"
	mailtpl "github.com/oksasatya/go-user-session/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EmailNotifier queues templated emails for the email worker.
type EmailNotifier struct {
	pub   Publisher
	brand mailtpl.Brand
}

func NewEmailNotifier(pub Publisher, brand mailtpl.Brand) *EmailNotifier {
	return &EmailNotifier{pub: pub, brand: brand}
}

func (n *EmailNotifier) Registered(ctx context.Context, p entity.UserProfile) error {
	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       p.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(n.brand, p.FullName, p.Username, p.Email),
	})
}

func (n *EmailNotifier) LoggedIn(ctx context.Context, p entity.UserProfile, meta application.ClientMeta) error {
	data := mailtpl.NewLoginNotificationData(n.brand, p.FullName, p.Username, p.Email,
		mailtpl.WithIP(meta.IP),
		mailtpl.WithUserAgent(meta.UserAgent),
		mailtpl.WithTime(meta.At),
	)
	return n.pub.PublishJSON(ctx, mailer.EmailJob{To: p.Email, Template: mailtpl.LoginNotification, Data: data})
}
