package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type collectionParams struct {
	CollectionId uint32 `params:"collectionId"`
}

func (r collectionParams) Collection() tokens.CollectionId {
	return tokens.CollectionId(r.CollectionId)
}

func (r collectionParams) Validate() error {
	if r.CollectionId == 0 {
		return errs.WithPublicMessage(errors.New("collectionId is required"), "validation error")
	}
	return nil
}

type senderRequest struct {
	Sender string `json:"sender"`
}

func (r senderRequest) Validate() error {
	if r.Sender == "" {
		return errs.WithPublicMessage(errors.New("sender is required"), "validation error")
	}
	return nil
}

func (h *HttpHandler) DestroyCollection(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req senderRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.DestroyCollection(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender)); err != nil {
		return errors.Wrap(public(err), "error during DestroyCollection")
	}
	return ok(ctx)
}

type setCollectionLimitsRequest struct {
	Sender string              `json:"sender"`
	Limits collectionLimitsDto `json:"limits"`
}

func (h *HttpHandler) SetCollectionLimits(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req setCollectionLimitsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), senderRequest{Sender: req.Sender}.Validate()); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.SetCollectionLimits(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), req.Limits.toEntity()); err != nil {
		return errors.Wrap(public(err), "error during SetCollectionLimits")
	}
	return ok(ctx)
}

type setCollectionPermissionsRequest struct {
	Sender      string                   `json:"sender"`
	Permissions collectionPermissionsDto `json:"permissions"`
}

func (h *HttpHandler) SetCollectionPermissions(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req setCollectionPermissionsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(
		params.Validate(),
		senderRequest{Sender: req.Sender}.Validate(),
		errs.WithPublicMessage(errors.Join(req.Permissions.validate()...), "validation error"),
	); err != nil {
		return errors.WithStack(err)
	}

	permissions := req.Permissions.toEntity()
	if permissions.Access == "" {
		permissions.Access = entity.AccessNormal
	}
	if err := h.ledger.SetCollectionPermissions(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), permissions); err != nil {
		return errors.Wrap(public(err), "error during SetCollectionPermissions")
	}
	return ok(ctx)
}

type changeCollectionOwnerRequest struct {
	Sender   string `json:"sender"`
	NewOwner string `json:"newOwner"`
}

func (h *HttpHandler) ChangeCollectionOwner(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req changeCollectionOwnerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	var errList []error
	if req.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if req.NewOwner == "" {
		errList = append(errList, errors.New("newOwner is required"))
	}
	if err := errors.Join(params.Validate(), errs.WithPublicMessage(errors.Join(errList...), "validation error")); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.ChangeCollectionOwner(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), tokens.AccountId(req.NewOwner)); err != nil {
		return errors.Wrap(public(err), "error during ChangeCollectionOwner")
	}
	return ok(ctx)
}

type accountMembershipRequest struct {
	Sender  string `json:"sender"`
	Account string `json:"account"`
}

func (r accountMembershipRequest) Validate() error {
	var errList []error
	if r.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if r.Account == "" {
		errList = append(errList, errors.New("account is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

func (h *HttpHandler) membershipHandler(apply func(ctx *fiber.Ctx, collection tokens.CollectionId, sender, account tokens.AccountId) error) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var params collectionParams
		if err := ctx.ParamsParser(&params); err != nil {
			return errors.WithStack(err)
		}
		var req accountMembershipRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errs.WithPublicMessage(err, "invalid request body")
		}
		if err := errors.Join(params.Validate(), req.Validate()); err != nil {
			return errors.WithStack(err)
		}
		if err := apply(ctx, params.Collection(), tokens.AccountId(req.Sender), tokens.AccountId(req.Account)); err != nil {
			return errors.WithStack(public(err))
		}
		return ok(ctx)
	}
}

func (h *HttpHandler) AddCollectionAdmin() fiber.Handler {
	return h.membershipHandler(func(ctx *fiber.Ctx, collection tokens.CollectionId, sender, account tokens.AccountId) error {
		return h.ledger.AddCollectionAdmin(ctx.UserContext(), collection, sender, account)
	})
}

func (h *HttpHandler) RemoveCollectionAdmin() fiber.Handler {
	return h.membershipHandler(func(ctx *fiber.Ctx, collection tokens.CollectionId, sender, account tokens.AccountId) error {
		return h.ledger.RemoveCollectionAdmin(ctx.UserContext(), collection, sender, account)
	})
}

func (h *HttpHandler) AddToAllowList() fiber.Handler {
	return h.membershipHandler(func(ctx *fiber.Ctx, collection tokens.CollectionId, sender, account tokens.AccountId) error {
		return h.ledger.AddToAllowList(ctx.UserContext(), collection, sender, account)
	})
}

func (h *HttpHandler) RemoveFromAllowList() fiber.Handler {
	return h.membershipHandler(func(ctx *fiber.Ctx, collection tokens.CollectionId, sender, account tokens.AccountId) error {
		return h.ledger.RemoveFromAllowList(ctx.UserContext(), collection, sender, account)
	})
}
