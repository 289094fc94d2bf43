package goAuthFlow

import (
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAuthFlow/challenge"
	"github.com/MrEthical07/goAuthFlow/internal/rate"
	"github.com/MrEthical07/goAuthFlow/internal/stores"
	"github.com/MrEthical07/goAuthFlow/password"
	"github.com/MrEthical07/goAuthFlow/token"
)

// Dialect selects the SQL flavor of the backing store.
type Dialect uint8

const (
	// DialectSQLite targets SQLite-compatible stores (default).
	DialectSQLite Dialect = iota
	// DialectPostgres targets PostgreSQL-compatible stores and uses
	// SELECT ... FOR UPDATE row locking.
	DialectPostgres
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until Engine methods run.
type Builder struct {
	config  Config
	db      *sql.DB
	dialect Dialect
	redis   *redis.Client

	fields    FieldProvider
	auditSink AuditSink
	handlers  []challenge.Handler

	built bool
}

// New returns a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithDB sets the shared database handle. Required.
func (b *Builder) WithDB(db *sql.DB) *Builder {
	b.db = db
	return b
}

// WithDialect sets the SQL dialect. Defaults to [DialectSQLite].
func (b *Builder) WithDialect(d Dialect) *Builder {
	b.dialect = d
	return b
}

// WithRedis sets the Redis client backing the attempt limiter. Required when
// rate limiting is enabled.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithFieldProvider sets the opaque account-attribute collaborator. Required.
func (b *Builder) WithFieldProvider(fp FieldProvider) *Builder {
	b.fields = fp
	return b
}

// WithAuditSink sets the sink receiving audit events when auditing is
// enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHandlers registers challenge handlers. A handler registered here
// replaces the built-in default for its type.
func (b *Builder) WithHandlers(handlers ...challenge.Handler) *Builder {
	b.handlers = append(b.handlers, handlers...)
	return b
}

// Build validates the configuration, wires the stores and collaborators, and
// returns an immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.db == nil {
		return nil, errors.New("database handle required")
	}
	if b.fields == nil {
		return nil, errors.New("field provider required")
	}
	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("RateLimit requires redis client")
	}

	handlers, err := b.handlerSet()
	if err != nil {
		return nil, err
	}

	// -------- STORES --------
	db := stores.New(b.db, storeDialect(b.dialect))
	defs := stores.NewDefStore(db)
	sessions := stores.NewSessionStore(db, defs)
	challenges := stores.NewChallengeStore(db, sessions, defs)
	messages := stores.NewMessageStore(db, sessions, challenges)
	upsert := stores.NewUpsertStore(db, sessions, defs, challenges, messages)

	// -------- TOKEN MANAGER --------
	var tokens *token.Manager
	if cfg.Token.Enabled() {
		tokens, err = token.NewManager(token.Config{
			TTL:           cfg.Token.TTL,
			SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
			PrivateKey:    cfg.Token.PrivateKey,
			PublicKey:     cfg.Token.PublicKey,
			Issuer:        cfg.Token.Issuer,
		})
		if err != nil {
			return nil, err
		}
	}

	// -------- ATTEMPT LIMITER --------
	var limiter *rate.Limiter
	if cfg.RateLimit.Enabled {
		limiter = rate.New(b.redis, rate.Config{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Cooldown:    cfg.RateLimit.Cooldown,
			Prefix:      cfg.RateLimit.RedisPrefix,
		})
	}

	b.built = true

	return &Engine{
		config:     cfg,
		db:         db,
		defs:       defs,
		sessions:   sessions,
		challenges: challenges,
		messages:   messages,
		upsert:     upsert,
		handlers:   handlers,
		fields:     b.fields,
		limiter:    limiter,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    newMetrics(cfg.Metrics),
		tokens:     tokens,
	}, nil
}

// handlerSet merges registered handlers over the built-in defaults. The
// password and signature handlers need no external collaborator and are
// always available; SRP and OTP handlers must be registered explicitly with
// their collaborators.
func (b *Builder) handlerSet() (map[challenge.Type]challenge.Handler, error) {
	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return nil, err
	}

	handlers := map[challenge.Type]challenge.Handler{
		challenge.TypePassword:         challenge.NewPasswordHandler(hasher),
		challenge.TypeDigitalSignature: challenge.NewSignatureHandler(nil),
	}
	for _, h := range b.handlers {
		if h == nil {
			return nil, errors.New("nil challenge handler")
		}
		handlers[h.Type()] = h
	}
	return handlers, nil
}

func storeDialect(d Dialect) stores.Dialect {
	if d == DialectPostgres {
		return stores.DialectPostgres
	}
	return stores.DialectSQLite
}
