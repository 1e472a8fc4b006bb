// Package nonfungible assembles the token ledger module: storage, ledger state
// machine, query usecase and the HTTP API, wired from configuration.
package nonfungible

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/internal/config"
	"github.com/tokenforge/nestledger/internal/postgres"
	"github.com/tokenforge/nestledger/modules/nonfungible/api/httphandler"
	"github.com/tokenforge/nestledger/modules/nonfungible/datagateway"
	"github.com/tokenforge/nestledger/modules/nonfungible/ledger"
	nonfungiblememory "github.com/tokenforge/nestledger/modules/nonfungible/repository/memory"
	nonfungiblepostgres "github.com/tokenforge/nestledger/modules/nonfungible/repository/postgres"
	"github.com/tokenforge/nestledger/modules/nonfungible/usecase"
	"github.com/tokenforge/nestledger/pkg/logger"
)

// Module is the assembled ledger service. It owns the storage connections and
// releases them on shutdown.
type Module struct {
	Ledger  *ledger.Ledger
	Usecase *usecase.Usecase

	cleanupFuncs []func(context.Context) error
}

func New(injector do.Injector) (*Module, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)

	var dg datagateway.NonfungibleDataGateway
	var readDg datagateway.NonfungibleDataGateway
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(conf.Modules.Nonfungible.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, conf.Modules.Nonfungible.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for ledger")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		dg = nonfungiblepostgres.NewRepository(pg)
		// Queries run concurrently with ledger mutations and must never observe
		// a mutation's open transaction, so the read path gets its own
		// pool-backed repository.
		readDg = nonfungiblepostgres.NewRepository(pg)
	case "memory":
		repo := nonfungiblememory.NewRepository()
		dg = repo
		readDg = repo
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for ledger is not supported", conf.Modules.Nonfungible.Database)
	}

	l := ledger.New(dg)
	u := usecase.New(readDg, l)

	apiHandlers := lo.Uniq(conf.Modules.Nonfungible.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			httpHandler := httphandler.New(l, u, conf.Modules.Nonfungible.DefaultNestingBudget)
			if err := httpHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount ledger API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return &Module{
		Ledger:       l,
		Usecase:      u,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (m *Module) Shutdown(ctx context.Context) error {
	for _, cleanup := range m.cleanupFuncs {
		if err := cleanup(ctx); err != nil {
			return errors.Wrap(err, "failed to clean up module resources")
		}
	}
	return nil
}
