package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type transferTokenRequest struct {
	Sender string  `json:"sender"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount *uint64 `json:"amount"`
}

func (r transferTokenRequest) Validate() error {
	var errList []error
	if r.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if r.To == "" {
		errList = append(errList, errors.New("to is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

func (r transferTokenRequest) amount() uint128.Uint128 {
	if r.Amount == nil {
		return uint128.From64(1)
	}
	return uint128.From64(*r.Amount)
}

// TransferToken moves a token. When from is present and differs from sender,
// the call is a delegated transfer gated by the allowance rules.
func (h *HttpHandler) TransferToken(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req transferTokenRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	var err error
	if req.From != "" && req.From != req.Sender {
		err = h.ledger.TransferFrom(ctx.UserContext(), params.Collection(),
			tokens.AccountId(req.Sender), tokens.AccountId(req.From), tokens.AccountId(req.To),
			params.Token(), req.amount(), h.nestingBudget(ctx))
	} else {
		err = h.ledger.Transfer(ctx.UserContext(), params.Collection(),
			tokens.AccountId(req.Sender), tokens.AccountId(req.To),
			params.Token(), req.amount(), h.nestingBudget(ctx))
	}
	if err != nil {
		return errors.Wrap(public(err), "error during Transfer")
	}
	return ok(ctx)
}

type setAllowanceRequest struct {
	Sender  string `json:"sender"`
	Spender string `json:"spender"`
}

// SetAllowance grants or clears the single-slot approval of a token. An empty
// spender clears it.
func (h *HttpHandler) SetAllowance(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req setAllowanceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), senderRequest{Sender: req.Sender}.Validate()); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.SetAllowance(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), params.Token(), tokens.AccountId(req.Spender)); err != nil {
		return errors.Wrap(public(err), "error during SetAllowance")
	}
	return ok(ctx)
}
