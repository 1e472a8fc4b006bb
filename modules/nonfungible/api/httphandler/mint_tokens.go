package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type propertyDto struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type mintItemDto struct {
	Owner      string        `json:"owner"`
	Amount     *uint64       `json:"amount"`
	Properties []propertyDto `json:"properties"`
}

type mintTokensRequest struct {
	Sender string        `json:"sender"`
	Items  []mintItemDto `json:"items"`
}

func (r mintTokensRequest) Validate() error {
	var errList []error
	if r.Sender == "" {
		errList = append(errList, errors.New("sender is required"))
	}
	if len(r.Items) == 0 {
		errList = append(errList, errors.New("items must not be empty"))
	}
	for i, item := range r.Items {
		if item.Owner == "" {
			errList = append(errList, errors.Errorf("items[%d].owner is required", i))
		}
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type mintTokensResult struct {
	TokenIds []uint32 `json:"tokenIds"`
}

type mintTokensResponse = HttpResponse[mintTokensResult]

func (h *HttpHandler) MintTokens(ctx *fiber.Ctx) error {
	var params collectionParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	var req mintTokensRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errs.WithPublicMessage(err, "invalid request body")
	}
	if err := errors.Join(params.Validate(), req.Validate()); err != nil {
		return errors.WithStack(err)
	}

	items := lo.Map(req.Items, func(item mintItemDto, _ int) entity.MintItem {
		mint := entity.MintItem{
			Owner: tokens.AccountId(item.Owner),
			Properties: lo.Map(item.Properties, func(property propertyDto, _ int) tokens.Property {
				return tokens.Property{Key: tokens.PropertyKey(property.Key), Value: tokens.PropertyValue(property.Value)}
			}),
		}
		if item.Amount != nil {
			mint.Amount = uint128.From64(*item.Amount)
		}
		return mint
	})

	var minted []tokens.TokenId
	var err error
	if lo.SomeBy(req.Items, func(item mintItemDto) bool { return item.Amount != nil }) {
		minted, err = h.ledger.CreateMultipleItemsEx(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), items, h.nestingBudget(ctx))
	} else {
		minted, err = h.ledger.CreateMultipleItems(ctx.UserContext(), params.Collection(), tokens.AccountId(req.Sender), items, h.nestingBudget(ctx))
	}
	if err != nil {
		return errors.Wrap(public(err), "error during CreateMultipleItems")
	}

	return errors.WithStack(ctx.JSON(mintTokensResponse{
		Result: &mintTokensResult{
			TokenIds: lo.Map(minted, func(id tokens.TokenId, _ int) uint32 { return uint32(id) }),
		},
	}))
}
