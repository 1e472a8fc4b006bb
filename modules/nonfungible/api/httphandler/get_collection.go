package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type collectionLimitsResult struct {
	TokenLimit                 uint32 `json:"tokenLimit"`
	AccountTokenOwnershipLimit uint32 `json:"accountTokenOwnershipLimit"`
	OwnerCanTransfer           bool   `json:"ownerCanTransfer"`
	TransfersEnabled           bool   `json:"transfersEnabled"`
}

type nestingPermissionResult struct {
	TokenOwner      bool      `json:"tokenOwner"`
	CollectionAdmin bool      `json:"collectionAdmin"`
	Restricted      *[]uint32 `json:"restricted"`
}

type collectionPermissionsResult struct {
	Access             string                  `json:"access"`
	MintMode           bool                    `json:"mintMode"`
	Nesting            nestingPermissionResult `json:"nesting"`
	IgnoresAllowance   bool                    `json:"ignoresAllowance"`
	IgnoresOwnedAmount bool                    `json:"ignoresOwnedAmount"`
}

type getCollectionResult struct {
	CollectionId uint32                      `json:"collectionId"`
	Owner        string                      `json:"owner"`
	Name         string                      `json:"name"`
	Description  string                      `json:"description"`
	TokensMinted uint32                      `json:"tokensMinted"`
	TokensBurnt  uint32                      `json:"tokensBurnt"`
	TotalSupply  uint32                      `json:"totalSupply"`
	Limits       collectionLimitsResult      `json:"limits"`
	Permissions  collectionPermissionsResult `json:"permissions"`
	Properties   map[string]string           `json:"properties"`
}

type getCollectionResponse = HttpResponse[getCollectionResult]

func newCollectionResult(collection *entity.Collection) getCollectionResult {
	result := getCollectionResult{
		CollectionId: uint32(collection.Id),
		Owner:        string(collection.Owner),
		Name:         collection.Name,
		Description:  collection.Description,
		TokensMinted: collection.TokensMinted,
		TokensBurnt:  collection.TokensBurnt,
		TotalSupply:  collection.TotalSupply(),
		Limits: collectionLimitsResult{
			TokenLimit:                 collection.Limits.TokenLimit,
			AccountTokenOwnershipLimit: collection.Limits.AccountTokenOwnershipLimit,
			OwnerCanTransfer:           collection.Limits.OwnerCanTransfer,
			TransfersEnabled:           collection.Limits.TransfersEnabled,
		},
		Permissions: collectionPermissionsResult{
			Access:   string(collection.Permissions.Access),
			MintMode: collection.Permissions.MintMode,
			Nesting: nestingPermissionResult{
				TokenOwner:      collection.Permissions.Nesting.TokenOwner,
				CollectionAdmin: collection.Permissions.Nesting.CollectionAdmin,
			},
			IgnoresAllowance:   collection.Permissions.IgnoresAllowance,
			IgnoresOwnedAmount: collection.Permissions.IgnoresOwnedAmount,
		},
	}
	if restricted := collection.Permissions.Nesting.Restricted; restricted != nil {
		ids := lo.Map(restricted, func(id tokens.CollectionId, _ int) uint32 { return uint32(id) })
		result.Permissions.Nesting.Restricted = &ids
	}
	return result
}

func (h *HttpHandler) GetCollection(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	if err := params.Validate(); err != nil {
		return errors.WithStack(err)
	}

	collection, err := h.usecase.GetCollection(ctx.UserContext(), params.Collection())
	if err != nil {
		return errors.Wrap(public(err), "error during GetCollection")
	}
	properties, err := h.usecase.CollectionProperties(ctx.UserContext(), params.Collection())
	if err != nil {
		return errors.Wrap(public(err), "error during CollectionProperties")
	}

	result := newCollectionResult(collection)
	result.Properties = propertiesResult(properties)
	return errors.WithStack(ctx.JSON(getCollectionResponse{Result: &result}))
}

type getCollectionTokensResult struct {
	TokenIds []uint32 `json:"tokenIds"`
}

type getCollectionTokensResponse = HttpResponse[getCollectionTokensResult]

func (h *HttpHandler) GetCollectionTokens(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	if err := params.Validate(); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.usecase.GetCollection(ctx.UserContext(), params.Collection()); err != nil {
		return errors.Wrap(public(err), "error during GetCollection")
	}
	ids, err := h.usecase.CollectionTokens(ctx.UserContext(), params.Collection())
	if err != nil {
		return errors.Wrap(public(err), "error during CollectionTokens")
	}
	return errors.WithStack(ctx.JSON(getCollectionTokensResponse{
		Result: &getCollectionTokensResult{TokenIds: tokenIdsResult(ids)},
	}))
}
