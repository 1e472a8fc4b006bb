package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type mutatePropertiesRequest struct {
	Sender     string        `json:"sender"`
	Properties []propertyDto `json:"properties"`
	Keys       []string      `json:"keys"`
}

func (r mutatePropertiesRequest) Validate() error {
	var errList []error
	if r.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if len(r.Properties) == 0 && len(r.Keys) == 0 {
		errList = append(errList, errors.New("properties or keys must not be empty"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

// mutations folds the set list and the delete list into one batch so both
// apply atomically.
func (r mutatePropertiesRequest) mutations() []tokens.PropertyMutation {
	mutations := lo.Map(r.Properties, func(property propertyDto, _ int) tokens.PropertyMutation {
		return tokens.PropertyMutation{
			Key:   tokens.PropertyKey(property.Key),
			Value: lo.ToPtr(tokens.PropertyValue(property.Value)),
		}
	})
	for _, key := range r.Keys {
		mutations = append(mutations, tokens.PropertyMutation{Key: tokens.PropertyKey(key)})
	}
	return mutations
}

func (h *HttpHandler) ModifyTokenProperties(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req mutatePropertiesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.ModifyTokenProperties(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), params.Token(), req.mutations(), h.nestingBudget(ctx)); err != nil {
		return errors.Wrap(public(err), "error during ModifyTokenProperties")
	}
	return ok(ctx)
}

type propertyPermissionDto struct {
	Key             string `json:"key"`
	Mutable         bool   `json:"mutable"`
	CollectionAdmin bool   `json:"collectionAdmin"`
	TokenOwner      bool   `json:"tokenOwner"`
}

type setPropertyPermissionsRequest struct {
	Sender      string                  `json:"sender"`
	Permissions []propertyPermissionDto `json:"permissions"`
}

func (r setPropertyPermissionsRequest) Validate() error {
	var errList []error
	if r.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if len(r.Permissions) == 0 {
		errList = append(errList, errors.New("permissions must not be empty"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

func (h *HttpHandler) SetTokenPropertyPermissions(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req setPropertyPermissionsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	permissions := lo.Map(req.Permissions, func(permission propertyPermissionDto, _ int) tokens.PropertyKeyPermission {
		return tokens.PropertyKeyPermission{
			Key: tokens.PropertyKey(permission.Key),
			Permission: tokens.PropertyPermission{
				Mutable:         permission.Mutable,
				CollectionAdmin: permission.CollectionAdmin,
				TokenOwner:      permission.TokenOwner,
			},
		}
	})
	if err := h.ledger.SetTokenPropertyPermissions(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), permissions); err != nil {
		return errors.Wrap(public(err), "error during SetTokenPropertyPermissions")
	}
	return ok(ctx)
}

func (h *HttpHandler) ModifyCollectionProperties(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req mutatePropertiesRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	sender := tokens.AccountId(req.Sender)
	if len(req.Properties) > 0 {
		properties := lo.Map(req.Properties, func(property propertyDto, _ int) tokens.Property {
			return tokens.Property{Key: tokens.PropertyKey(property.Key), Value: tokens.PropertyValue(property.Value)}
		})
		if err := h.ledger.SetCollectionProperties(ctx.UserContext(), params.Collection(), sender, properties); err != nil {
			return errors.Wrap(public(err), "error during SetCollectionProperties")
		}
	}
	if len(req.Keys) > 0 {
		keys := lo.Map(req.Keys, func(key string, _ int) tokens.PropertyKey { return tokens.PropertyKey(key) })
		if err := h.ledger.DeleteCollectionProperties(ctx.UserContext(), params.Collection(), sender, keys); err != nil {
			return errors.Wrap(public(err), "error during DeleteCollectionProperties")
		}
	}
	return ok(ctx)
}

type auxPropertyRequest struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (r auxPropertyRequest) Validate() error {
	var errList []error
	if r.Scope == "" {
		errList = append(errList, errors.New("scope is required"))
	}
	if r.Key == "" {
		errList = append(errList, errors.New("key is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

func (h *HttpHandler) SetAuxProperty(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req auxPropertyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.SetAuxProperty(ctx.UserContext(), params.Collection(), params.Token(), tokens.PropertyScope(req.Scope), tokens.PropertyKey(req.Key), tokens.PropertyValue(req.Value)); err != nil {
		return errors.Wrap(public(err), "error during SetAuxProperty")
	}
	return ok(ctx)
}

func (h *HttpHandler) RemoveAuxProperty(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req auxPropertyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	if err := h.ledger.RemoveAuxProperty(ctx.UserContext(), params.Collection(), params.Token(), tokens.PropertyScope(req.Scope), tokens.PropertyKey(req.Key)); err != nil {
		return errors.Wrap(public(err), "error during RemoveAuxProperty")
	}
	return ok(ctx)
}
