package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/ledger"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type collectionLimitsDto struct {
	TokenLimit                 uint32 `json:"tokenLimit"`
	AccountTokenOwnershipLimit uint32 `json:"accountTokenOwnershipLimit"`
	OwnerCanTransfer           bool   `json:"ownerCanTransfer"`
	TransfersEnabled           bool   `json:"transfersEnabled"`
}

func (d collectionLimitsDto) toEntity() entity.CollectionLimits {
	return entity.CollectionLimits{
		TokenLimit:                 d.TokenLimit,
		AccountTokenOwnershipLimit: d.AccountTokenOwnershipLimit,
		OwnerCanTransfer:           d.OwnerCanTransfer,
		TransfersEnabled:           d.TransfersEnabled,
	}
}

type nestingPermissionDto struct {
	TokenOwner      bool      `json:"tokenOwner"`
	CollectionAdmin bool      `json:"collectionAdmin"`
	Restricted      *[]uint32 `json:"restricted"`
}

type collectionPermissionsDto struct {
	Access             string               `json:"access"`
	MintMode           bool                 `json:"mintMode"`
	Nesting            nestingPermissionDto `json:"nesting"`
	IgnoresAllowance   bool                 `json:"ignoresAllowance"`
	IgnoresOwnedAmount bool                 `json:"ignoresOwnedAmount"`
}

func (d collectionPermissionsDto) toEntity() entity.CollectionPermissions {
	permissions := entity.CollectionPermissions{
		Access:   entity.AccessMode(d.Access),
		MintMode: d.MintMode,
		Nesting: entity.NestingPermission{
			TokenOwner:      d.Nesting.TokenOwner,
			CollectionAdmin: d.Nesting.CollectionAdmin,
		},
		IgnoresAllowance:   d.IgnoresAllowance,
		IgnoresOwnedAmount: d.IgnoresOwnedAmount,
	}
	if d.Nesting.Restricted != nil {
		permissions.Nesting.Restricted = lo.Map(*d.Nesting.Restricted, func(id uint32, _ int) tokens.CollectionId {
			return tokens.CollectionId(id)
		})
	}
	return permissions
}

func (d collectionPermissionsDto) validate() []error {
	var errList []error
	switch entity.AccessMode(d.Access) {
	case "", entity.AccessNormal, entity.AccessAllowList:
	default:
		errList = append(errList, errors.Errorf("access '%s' is not valid", d.Access))
	}
	return errList
}

type createCollectionRequest struct {
	Sender      string                    `json:"sender"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Limits      *collectionLimitsDto      `json:"limits"`
	Permissions *collectionPermissionsDto `json:"permissions"`
}

func (r createCollectionRequest) Validate() error {
	var errList []error
	if r.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if r.Permissions != nil {
		errList = append(errList, r.Permissions.validate()...)
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type createCollectionResult struct {
	CollectionId uint32 `json:"collectionId"`
}

type createCollectionResponse = HttpResponse[createCollectionResult]

func (h *HttpHandler) CreateCollection(ctx *fiber.Ctx) error {
	var req createCollectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return errors.WithStack(err)
	}

	params := ledger.InitCollectionParams{
		Owner:       tokens.AccountId(req.Sender),
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Limits != nil {
		params.Limits = lo.ToPtr(req.Limits.toEntity())
	}
	if req.Permissions != nil {
		permissions := req.Permissions.toEntity()
		if permissions.Access == "" {
			permissions.Access = entity.AccessNormal
		}
		params.Permissions = lo.ToPtr(permissions)
	}

	id, err := h.ledger.InitCollection(ctx.UserContext(), params)
	if err != nil {
		return errors.Wrap(public(err), "error during InitCollection")
	}
	return errors.WithStack(ctx.JSON(createCollectionResponse{
		Result: &createCollectionResult{CollectionId: uint32(id)},
	}))
}
