package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"skill-registry/internal/config"
	"skill-registry/internal/database"
	"skill-registry/internal/database/migration"
	dbpostgres "skill-registry/internal/database/postgres"
	"skill-registry/internal/database/seeder"
	"skill-registry/internal/domain/user"
	"skill-registry/internal/infrastructure/cache"
	"skill-registry/internal/infrastructure/github"
	"skill-registry/internal/infrastructure/linkmeta"
	"skill-registry/internal/infrastructure/persistence/mongostore"
	"skill-registry/internal/metrics"
	"skill-registry/internal/pkg/jwt"
	"skill-registry/internal/repository"
	"skill-registry/internal/usecase"
	"skill-registry/internal/ws"
)

type Repositories struct {
	Users        user.Repository
	MenuOptions  repository.MenuOptionRepository
	AccessLevels repository.AccessLevelRepository
	Skills       repository.SkillRepository
	Evaluations  repository.EvaluationRepository
	Profiles     repository.ProfileRepository
}

type Usecases struct {
	Auth         *usecase.Auth
	Users        *usecase.User
	MenuOptions  *usecase.MenuOptions
	AccessLevels *usecase.AccessLevels
	Skills       *usecase.Skills
	Evaluations  *usecase.Evaluations
	Profiles     *usecase.Profiles
	Cascade      *usecase.Cascade
	Github       *usecase.Github
}

// Container owns every long-lived dependency. Exactly one of DB and Mongo is
// set, depending on STORE_DRIVER.
type Container struct {
	Config  config.Config
	Logger  *log.Logger
	DB      database.DB
	Mongo   *mongostore.Store
	Cache   *cache.Redis
	Metrics *metrics.Metrics
	Hub     *ws.Hub
	JWT     jwt.Service

	Repos     Repositories
	Usecases  Usecases
	pingStore func(ctx context.Context) error
}

func NewContainer(ctx context.Context, cfg config.Config, logger *log.Logger) (*Container, error) {
	if logger == nil {
		logger = log.Default()
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(metricsNamespace(cfg.App.AppName)),
	}

	if err := c.openStore(ctx); err != nil {
		return nil, err
	}

	c.Cache = cache.NewRedis(cfg.Redis, logger)
	c.Hub = ws.NewHub(logger, c.Metrics)
	c.JWT = jwt.NewHMACService(
		cfg.App.AppName,
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiresIn,
		cfg.JWT.RefreshExpiresIn,
	)
	c.buildUsecases()

	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	cfg := c.Config
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := dbpostgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		applied, err := migration.NewDirRunner(cfg.Database.MigrationsDir, c.Logger).Run(ctx, db)
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("migration failed: %w", err)
		}
		c.Logger.Printf("[App] Postgres store ready migrations_applied=%d", applied)

		c.DB = db
		c.pingStore = db.Ping
		c.Repos = Repositories{
			Users:        repository.NewPostgresUserRepository(db),
			MenuOptions:  repository.NewPostgresMenuOptionRepository(db),
			AccessLevels: repository.NewPostgresAccessLevelRepository(db),
			Skills:       repository.NewPostgresSkillRepository(db),
			Evaluations:  repository.NewPostgresEvaluationRepository(db),
			Profiles:     repository.NewPostgresProfileRepository(db),
		}
	default:
		timeout := cfg.Mongo.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		mctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		store, err := mongostore.NewStore(mctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return err
		}
		c.Logger.Printf("[App] MongoDB store ready database=%s", cfg.Mongo.Database)

		c.Mongo = store
		c.pingStore = store.Ping
		c.Repos = Repositories{
			Users:        store.Users(),
			MenuOptions:  store.MenuOptions(),
			AccessLevels: store.AccessLevels(),
			Skills:       store.Skills(),
			Evaluations:  store.Evaluations(),
			Profiles:     store.Profiles(),
		}
	}
	return nil
}

func (c *Container) buildUsecases() {
	r := c.Repos
	events := ws.NewPublisher(c.Hub)

	// A typed nil would defeat the nil check in the github usecase.
	var githubCache usecase.Cache
	if c.Cache.Available() {
		githubCache = c.Cache
	}

	cascade := usecase.NewCascadeUsecase(
		r.Profiles, r.Evaluations, r.Skills,
		usecase.RetryPolicy{MaxAttempts: c.Config.Cascade.MaxAttempts, Backoff: c.Config.Cascade.Backoff},
		c.Metrics, events, c.Logger,
	)

	c.Usecases = Usecases{
		Auth:         usecase.NewAuthUsecase(r.Users, r.AccessLevels, c.JWT, c.Config.App.RegistrationEmailDomain),
		Users:        usecase.NewUserUsecase(r.Users, r.AccessLevels, events, c.Logger),
		MenuOptions:  usecase.NewMenuOptionUsecase(r.MenuOptions, r.AccessLevels),
		AccessLevels: usecase.NewAccessLevelUsecase(r.AccessLevels, r.MenuOptions, r.Users),
		Skills: usecase.NewSkillUsecase(
			r.Skills, r.Evaluations, r.Profiles,
			linkmeta.NewResolver(0, c.Logger), events, c.Logger,
		),
		Evaluations: usecase.NewEvaluationUsecase(r.Evaluations, r.Skills, r.Profiles, c.Metrics, events, c.Logger),
		Profiles:    usecase.NewProfileUsecase(r.Profiles, r.Skills, r.Users),
		Cascade:     cascade,
		Github: usecase.NewGithubUsecase(
			github.NewClient(c.Config.Github.APIBase, c.Config.Github.ClientID, c.Config.Github.ClientSecret, c.Logger),
			githubCache, c.Config.Github.CacheTTL, c.Metrics, c.Logger,
		),
	}
}

// NewReconciler builds the repair job on the container's store.
func (c *Container) NewReconciler() *usecase.Reconciler {
	return usecase.NewReconciler(
		c.Repos.Profiles, c.Repos.Evaluations, c.Repos.Skills, c.Usecases.Cascade,
		usecase.ReconcileOptions{Workers: c.Config.Reconcile.Workers, RPS: c.Config.Reconcile.RPS},
		c.Metrics, c.Logger,
	)
}

// Seed applies the configured seed file, if any.
func (c *Container) Seed(ctx context.Context) error {
	path := c.Config.Seed.File
	if path == "" {
		return nil
	}
	f, err := seeder.LoadFile(path)
	if err != nil {
		return err
	}
	r := seeder.Runner{Seeders: f.Defaults(), Logger: c.Logger}
	return r.Run(ctx, seeder.Target{
		MenuOptions:  c.Usecases.MenuOptions,
		AccessLevels: c.Usecases.AccessLevels,
		Skills:       c.Usecases.Skills,
	})
}

func (c *Container) PingStore(ctx context.Context) error {
	if c == nil || c.pingStore == nil {
		return fmt.Errorf("store not configured")
	}
	return c.pingStore(ctx)
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Mongo != nil {
		if err := c.Mongo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
