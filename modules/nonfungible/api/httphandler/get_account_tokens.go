package httphandler

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/tokenforge/nestledger/common/errs"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

type accountTokensParams struct {
	CollectionId uint32 `params:"collectionId"`
	Account      string `params:"account"`
}

func (r accountTokensParams) Validate() error {
	var errList []error
	if r.CollectionId == 0 {
		errList = append(errList, errors.New("collectionId is required"))
	}
	if r.Account == "" {
		errList = append(errList, errors.New("account is required"))
	}
	return errs.WithPublicMessage(errors.Join(errList...), "validation error")
}

type getAccountTokensResult struct {
	Account  string   `json:"account"`
	Balance  uint32   `json:"balance"`
	TokenIds []uint32 `json:"tokenIds"`
}

type getAccountTokensResponse = HttpResponse[getAccountTokensResult]

func (h *HttpHandler) GetAccountTokens(ctx *fiber.Ctx) error {
	var params accountTokensParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	if err := params.Validate(); err != nil {
		return errors.WithStack(err)
	}

	collection := tokens.CollectionId(params.CollectionId)
	if _, err := h.usecase.GetCollection(ctx.UserContext(), collection); err != nil {
		return errors.Wrap(public(err), "error during GetCollection")
	}
	ids, err := h.usecase.AccountTokens(ctx.UserContext(), collection, tokens.AccountId(params.Account))
	if err != nil {
		return errors.Wrap(public(err), "error during AccountTokens")
	}
	return errors.WithStack(ctx.JSON(getAccountTokensResponse{
		Result: &getAccountTokensResult{
			Account:  params.Account,
			Balance:  uint32(len(ids)),
			TokenIds: tokenIdsResult(ids),
		},
	}))
}
