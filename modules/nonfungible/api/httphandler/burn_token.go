package httphandler

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
	"github.com/tokenforge/nestledger/pkg/budget"
)

type burnTokenRequest struct {
	Sender string  `json:"sender"`
	From   string  `json:"from"`
	Amount *uint64 `json:"amount"`
}

func (r burnTokenRequest) Validate() error {
	if r.Sender == "" {
		return errs.WithPublicMessage(errors.New("sender is required"), "validation error")
	}
	return nil
}

func (r burnTokenRequest) amount() uint128.Uint128 {
	if r.Amount == nil {
		return uint128.From64(1)
	}
	return uint128.From64(*r.Amount)
}

// BurnToken destroys a single childless token. When from differs from sender,
// the call runs through the delegated-burn allowance checks.
func (h *HttpHandler) BurnToken(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req burnTokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	var err error
	if req.From != "" && req.From != req.Sender {
		err = h.ledger.BurnFrom(ctx.UserContext(), params.Collection(),
			tokens.AccountId(req.Sender), tokens.AccountId(req.From),
			params.Token(), req.amount(), h.nestingBudget(ctx))
	} else {
		err = h.ledger.Burn(ctx.UserContext(), params.Collection(),
			tokens.AccountId(req.Sender), params.Token(), req.amount())
	}
	if err != nil {
		return errors.Wrap(public(err), "error during Burn")
	}
	return ok(ctx)
}

type burnRecursivelyResult struct {
	TokensBurned uint32 `json:"tokensBurned"`
	Cost         uint64 `json:"cost"`
}

type burnRecursivelyResponse = HttpResponse[burnRecursivelyResult]

// budgetQuery parses a per-request traversal budget from a query parameter.
// Absence means unlimited, which matches the recursive burn semantics where
// the caller opts into bounds explicitly.
func budgetQuery(ctx *fiber.Ctx, name string) (budget.Budget, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return budget.Unlimited(), nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, errs.WithPublicMessage(errors.Wrapf(err, "invalid %s", name), "validation error")
	}
	return budget.NewLimited(uint32(n)), nil
}

// BurnTokenRecursively destroys a token and its whole nested subtree in one
// transaction, bounded by selfBudget and breadthBudget query parameters.
func (h *HttpHandler) BurnTokenRecursively(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req senderRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	selfBudget, selfErr := budgetQuery(ctx, "selfBudget")
	breadthBudget, breadthErr := budgetQuery(ctx, "breadthBudget")
	if err := errors.Join(params.Validate(), req.Validate(), selfErr, breadthErr); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.ledger.BurnRecursively(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), params.Token(), selfBudget, breadthBudget)
	if err != nil {
		return errors.Wrap(public(err), "error during BurnRecursively")
	}
	return errors.WithStack(ctx.JSON(burnRecursivelyResponse{
		Result: &burnRecursivelyResult{
			TokensBurned: result.TokensBurned,
			Cost:         result.Cost,
		},
	}))
}
