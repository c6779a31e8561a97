package container

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-session/config"
	"github.com/oksasatya/go-user-session/internal/application"
	"github.com/oksasatya/go-user-session/internal/infrastructure/cache"
	"github.com/oksasatya/go-user-session/internal/infrastructure/media"
	"github.com/oksasatya/go-user-session/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/go-user-session/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-session/internal/infrastructure/search"
	"github.com/oksasatya/go-user-session/pkg/helpers"
	mailtpl "github.com/oksasatya/go-user-session/pkg/mailer/templates"
)

// Container owns the process-wide clients and the services built on them.
// It is passed explicitly to the router; Close releases everything it opened.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PG     *pgxpool.Pool
	Redis  *redis.Client
	GCS    *storage.Client
	ES     *elasticsearch.Client
	Rabbit *helpers.RabbitPublisher

	JWT      *helpers.JWTManager
	Sessions *application.SessionService
	Users    *application.UserService
}

// New connects to Postgres and GCS (both required) and, best effort, to
// Redis, Elasticsearch and RabbitMQ. A missing optional backend disables
// the feature that depends on it.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	c.PG = pool

	gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("gcs: %w", err)
	}
	c.GCS = gcs

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("redis unavailable; profile cache disabled")
		_ = rdb.Close()
	} else {
		c.Redis = rdb
	}

	if es, err := connectES(ctx, cfg); err != nil {
		logger.WithError(err).Warn("elasticsearch unavailable; user search disabled")
	} else {
		c.ES = es
	}

	if cfg.MailSendEnabled {
		if pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue); err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; email notifications disabled")
		} else {
			c.Rabbit = pub
		}
	}

	c.JWT = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.JWTIssuer)
	c.wireServices()
	return c, nil
}

func connectES(ctx context.Context, cfg *config.Config) (*elasticsearch.Client, error) {
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := helpers.PingES(pingCtx, es); err != nil {
		return nil, err
	}
	return es, nil
}

func (c *Container) wireServices() {
	repo := pginfra.NewUserRepository(c.PG)
	c.Sessions = application.NewSessionService(repo, c.JWT, c.Logger)

	uploader := media.NewGCSUploader(c.GCS, c.Config.GCSBucket, "avatars", c.Logger)
	users := application.NewUserService(c.Sessions, repo, uploader, c.Logger)
	if c.Redis != nil {
		users.Cache = cache.NewProfileCache(c.Redis, c.Config.ProfileCacheTTL)
	}
	if c.ES != nil {
		users.Indexer = search.NewUserIndex(c.ES, c.Config.ESUsersIndex)
	}
	if c.Rabbit != nil {
		users.Notifier = notify.NewEmailNotifier(c.Rabbit, mailtpl.Brand{
			AppName:     c.Config.AppName,
			CompanyName: c.Config.CompanyName,
			SupportURL:  c.Config.SupportURL,
		})
	}
	c.Users = users
}

// Close releases clients in reverse order of construction.
func (c *Container) Close() {
	if c.Rabbit != nil {
		c.Rabbit.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
	if c.PG != nil {
		c.PG.Close()
	}
}
