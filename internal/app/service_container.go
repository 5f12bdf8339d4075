package app

import (
	"fmt"
	"log"
	"time"

	"vesting-backend/internal/auth"
	"vesting-backend/internal/clients"
	"vesting-backend/internal/config"
	"vesting-backend/internal/events"
	"vesting-backend/internal/repository"
	"vesting-backend/internal/services"
	"vesting-backend/internal/tokens"
	"vesting-backend/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer holds every long-lived service of the server
type ServiceContainer struct {
	Config *config.Config
	Logger *logrus.Logger

	// Database (nil when no DSN is configured)
	DB        *gorm.DB
	EventRepo repository.VestingEventRepository

	// Core Services
	Registry           *tokens.Registry
	VestingService     *services.VestingService
	AttestationService *services.AttestationService // nil unless the attester is enabled
	AuthService        *services.AuthService
	AdminAuthService   *services.AdminAuthService

	// Event fanout
	EventJournal         *services.EventJournalService
	WebSocketPushService *services.WebSocketPushService
	NATSClient           *clients.NATSClient
	EventPublisher       *events.Publisher
}

// NewServiceContainer wires the services described by cfg. database may be nil.
func NewServiceContainer(cfg *config.Config, database *gorm.DB, logger *logrus.Logger) (*ServiceContainer, error) {
	log.Println("🚀 Initializing Service Container...")

	c := &ServiceContainer{
		Config: cfg,
		Logger: logger,
		DB:     database,
	}

	if err := c.initCoreServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize core services: %w", err)
	}
	c.initEventServices()

	log.Println("✅ Service Container initialized successfully")
	return c, nil
}

func (c *ServiceContainer) initCoreServices() error {
	log.Println("⚙️ Initializing Core Services...")
	cfg := c.Config

	c.Registry = tokens.NewRegistry()
	for _, t := range cfg.Vesting.Tokens {
		addr := common.HexToAddress(t.Address)
		c.Registry.Register(addr, tokens.NewMemoryToken(addr, t.Symbol))
		log.Printf("   🪙 Token %s (%s)", t.Symbol, addr.Hex())
	}

	var signer *auth.Signer
	if cfg.Attester.PrivateKey != "" {
		s, err := auth.NewSignerFromHex(cfg.Attester.PrivateKey)
		if err != nil {
			return fmt.Errorf("attester key: %w", err)
		}
		signer = s
	}

	authority := common.HexToAddress(cfg.Vesting.AuthorityAddress)
	if cfg.Vesting.AuthorityAddress == "" {
		authority = signer.Address()
	}

	vestingService, err := services.NewVestingService(vesting.Config{
		Address:    common.HexToAddress(cfg.Vesting.ContractAddress),
		Owner:      common.HexToAddress(cfg.Vesting.Owner),
		VerifierID: cfg.Vesting.VerifierID,
		Authorizer: auth.NewVerifier(authority),
	}, c.Registry, c.Logger)
	if err != nil {
		return err
	}
	c.VestingService = vestingService
	log.Printf("   📜 Vesting contract %s, authority %s", vestingService.ContractAddress().Hex(), authority.Hex())

	if cfg.Attester.Enabled && signer != nil {
		c.AttestationService = services.NewAttestationService(signer, vestingService, c.Logger)
		log.Printf("   ✍️ Attester enabled: %s", signer.Address().Hex())
	}

	c.AuthService = services.NewAuthService(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour,
		time.Duration(cfg.Auth.NonceTTL)*time.Second,
	)
	c.AdminAuthService = services.NewAdminAuthService(
		cfg.Admin.Username,
		cfg.Admin.PasswordHash,
		cfg.Admin.TOTPSecret,
		cfg.Admin.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLHours)*time.Hour,
	)
	if !c.AdminAuthService.Enabled() {
		log.Println("   ⚠️ Admin login not configured, authority rotation endpoint disabled")
	}
	return nil
}

// initEventServices registers the event handlers. Journal and NATS are
// optional and skipped when not configured.
func (c *ServiceContainer) initEventServices() {
	log.Println("📡 Initializing Event Services...")

	if c.DB != nil {
		c.EventRepo = repository.NewVestingEventRepository(c.DB)
		c.EventJournal = services.NewEventJournalService(c.EventRepo, c.VestingService)
		c.VestingService.AddHandler(c.EventJournal)
		log.Println("   ✅ Event journal enabled")
	}

	c.WebSocketPushService = services.NewWebSocketPushService()
	c.VestingService.AddHandler(c.WebSocketPushService)

	if c.Config.NATS.URL == "" {
		log.Println("   ⚠️ NATS URL not configured, event publishing disabled")
		return
	}
	natsClient, err := clients.NewNATSClient(c.Config.NATS)
	if err != nil {
		log.Printf("   ⚠️ NATS unavailable, event publishing disabled: %v", err)
		return
	}
	c.NATSClient = natsClient
	c.EventPublisher = events.NewPublisher(natsClient, c.Config.NATS.SubjectPrefix, c.Logger)
	c.VestingService.AddHandler(c.EventPublisher)
	log.Printf("   ✅ Publishing events to %s.*", c.Config.NATS.SubjectPrefix)
}

// Close stops background services
func (c *ServiceContainer) Close() {
	if c.WebSocketPushService != nil {
		c.WebSocketPushService.Close()
	}
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
}
