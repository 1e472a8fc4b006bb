// Package httphandler is the HTTP dispatch layer of the token ledger: one
// route per ledger operation, translating request shapes 1:1 onto ledger
// method invocations. It holds no domain logic of its own.
package httphandler

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/ledger"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/modules/nonfungible/usecase"
	"github.com/tokenforge/nestledger/pkg/budget"
)

type HttpHandler struct {
	ledger  *ledger.Ledger
	usecase *usecase.Usecase

	// defaultNestingBudget bounds nesting traversals when the request does
	// not carry an explicit budget
	defaultNestingBudget uint32
}

func New(l *ledger.Ledger, u *usecase.Usecase, defaultNestingBudget uint32) *HttpHandler {
	return &HttpHandler{
		ledger:               l,
		usecase:              u,
		defaultNestingBudget: defaultNestingBudget,
	}
}

type HttpResponse[T any] struct {
	Error  *string `json:"error"`
	Result *T      `json:"result,omitempty"`
}

// nestingBudget builds the request-scoped traversal budget from the
// nestingBudget query parameter, falling back to the configured default.
func (h *HttpHandler) nestingBudget(ctx *fiber.Ctx) budget.Budget {
	raw := ctx.Query("nestingBudget")
	if raw == "" {
		return budget.NewLimited(h.defaultNestingBudget)
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return budget.NewLimited(h.defaultNestingBudget)
	}
	return budget.NewLimited(uint32(n))
}

type tokenParams struct {
	CollectionId uint32 `params:"collectionId"`
	TokenId      uint32 `params:"tokenId"`
}

func (r tokenParams) Collection() tokens.CollectionId {
	return tokens.CollectionId(r.CollectionId)
}

func (r tokenParams) Token() tokens.TokenId {
	return tokens.TokenId(r.TokenId)
}

func (r tokenParams) Validate() error {
	var errList []error
	if r.CollectionId == 0 {
		errList = append(errList, errors.New("collectionId is required"))
	}
	if r.TokenId == 0 {
		errList = append(errList, errors.New("tokenId is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

// public converts typed domain failures into public API errors so callers get
// the error kind instead of a blank internal error. Unknown errors pass
// through to the 500 path.
func public(err error) error {
	if err == nil {
		return nil
	}
	var kind errs.ErrorKind
	if errors.As(err, &kind) {
		return errs.WithPublicMessageCode(err, "", string(kind))
	}
	return err
}

func ok(ctx *fiber.Ctx) error {
	type empty struct{}
	return errors.WithStack(ctx.JSON(HttpResponse[empty]{}))
}
