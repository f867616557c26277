package di

import (
	"github.com/medicalink/staff-backend/internal/cache"
	"github.com/medicalink/staff-backend/internal/handler"
	"github.com/medicalink/staff-backend/internal/mailer"
	"github.com/medicalink/staff-backend/internal/repository"
	"github.com/medicalink/staff-backend/internal/service"
	"github.com/medicalink/staff-backend/internal/token"
	"github.com/medicalink/staff-backend/pkg/config"
	"github.com/medicalink/staff-backend/pkg/database"
	"github.com/medicalink/staff-backend/pkg/logger"
	"github.com/medicalink/staff-backend/pkg/redis"
)

// Container holds all dependencies for the staff backend
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Cache entities
	Sessions    *cache.SessionStore
	Blacklist   *cache.Blacklist
	RateLimiter *cache.RateLimiter

	// Core
	Tokens    *token.Manager
	StaffRepo repository.StaffRepository
	Mailer    mailer.Mailer

	// Services
	AuthService  service.AuthService
	StaffService service.StaffService

	// Handlers
	AuthHandler   *handler.AuthHandler
	StaffHandler  *handler.StaffHandler
	HealthHandler *handler.HealthHandler
}

// NewContainer wires the full dependency graph from configuration and the
// already-connected infrastructure clients.
func NewContainer(cfg *config.Config, db *database.PostgresDB, rdb *redis.Client) (*Container, error) {
	log := logger.Get()

	accessExpiry, err := cfg.Auth.AccessExpiry()
	if err != nil {
		return nil, err
	}
	refreshExpiry, err := cfg.Auth.RefreshExpiry()
	if err != nil {
		return nil, err
	}

	c := &Container{
		DB:    db,
		Redis: rdb,
	}

	prefix := cfg.Redis.KeyPrefix
	c.Sessions = cache.NewSessionStore(rdb, prefix, refreshExpiry, log)
	c.Blacklist = cache.NewBlacklist(rdb, prefix)
	c.RateLimiter = cache.NewRateLimiter(rdb, prefix, log)

	c.Tokens = token.NewManager(cfg.Auth.Secret, cfg.Auth.RefreshSecret, accessExpiry, refreshExpiry)
	c.StaffRepo = repository.NewPostgresStaffRepository(db.Pool())

	if cfg.Mail.Enabled && cfg.Mail.Host != "" {
		c.Mailer = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		}, log)
	} else {
		c.Mailer = mailer.NewNoopMailer(log)
	}

	c.AuthService = service.NewAuthService(c.StaffRepo, c.Sessions, c.Blacklist, c.Tokens, log)
	c.StaffService = service.NewStaffService(c.StaffRepo, c.AuthService, c.Mailer, cfg.Auth.BcryptCost, log)

	c.AuthHandler = handler.NewAuthHandler(c.AuthService, c.StaffService)
	c.StaffHandler = handler.NewStaffHandler(c.StaffService)
	c.HealthHandler = handler.NewHealthHandler(db, rdb)

	return c, nil
}
