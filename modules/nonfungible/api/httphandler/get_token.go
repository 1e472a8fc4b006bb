package httphandler

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/tokenforge/nestledger/modules/nonfungible/entity"
	"github.com/tokenforge/nestledger/modules/nonfungible/tokens"
)

func propertiesResult(properties tokens.Properties) map[string]string {
	result := make(map[string]string, len(properties))
	for key, value := range properties {
		result[string(key)] = string(value)
	}
	return result
}

func tokenIdsResult(ids []tokens.TokenId) []uint32 {
	return lo.Map(ids, func(id tokens.TokenId, _ int) uint32 { return uint32(id) })
}

type tokenAddressResult struct {
	CollectionId uint32 `json:"collectionId"`
	TokenId      uint32 `json:"tokenId"`
}

type getTokenResult struct {
	CollectionId uint32               `json:"collectionId"`
	TokenId      uint32               `json:"tokenId"`
	Owner        string               `json:"owner"`
	TopmostOwner string               `json:"topmostOwner"`
	Properties   map[string]string    `json:"properties"`
	Children     []tokenAddressResult `json:"children"`
	Allowance    *string              `json:"allowance"`
}

type getTokenResponse = HttpResponse[getTokenResult]

// GetToken serves the aggregate token view: direct and topmost owner, user
// properties, nested children and the current approval.
func (h *HttpHandler) GetToken(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	if err := params.Validate(); err != nil {
		return errors.WithStack(err)
	}

	summary, err := h.usecase.GetTokenSummary(ctx.UserContext(), params.Collection(), params.Token())
	if err != nil {
		return errors.Wrap(public(err), "error during GetTokenSummary")
	}
	topmost, err := h.usecase.TopmostOwner(ctx.UserContext(), params.Collection(), params.Token(), h.nestingBudget(ctx))
	if err != nil {
		return errors.Wrap(public(err), "error during TopmostOwner")
	}

	result := getTokenResult{
		CollectionId: uint32(summary.Collection),
		TokenId:      uint32(summary.Token),
		Owner:        string(summary.Owner),
		TopmostOwner: string(topmost),
		Properties:   propertiesResult(summary.Properties),
		Children: lo.Map(summary.Children, func(child tokens.TokenAddress, _ int) tokenAddressResult {
			return tokenAddressResult{CollectionId: uint32(child.CollectionId), TokenId: uint32(child.TokenId)}
		}),
	}
	if summary.Allowance != "" {
		result.Allowance = lo.ToPtr(string(summary.Allowance))
	}
	return errors.WithStack(ctx.JSON(getTokenResponse{Result: &result}))
}

type tokenEventResult struct {
	Id          uint64    `json:"id"`
	Kind        string    `json:"kind"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Spender     string    `json:"spender,omitempty"`
	PropertyKey string    `json:"propertyKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type tokenLogResult struct {
	Id        uint64    `json:"id"`
	Kind      string    `json:"kind"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"createdAt"`
}

type getTokenHistoryResult struct {
	Events []tokenEventResult `json:"events"`
	Logs   []tokenLogResult   `json:"logs"`
}

type getTokenHistoryResponse = HttpResponse[getTokenHistoryResult]

// GetTokenHistory serves the persisted event stream of a token alongside the
// ERC-721-shaped logs.
func (h *HttpHandler) GetTokenHistory(ctx *fiber.Ctx) error {
	var params tokenParams
	if err := ctx.ParamsParser(&params); err != nil {
		return errors.WithStack(err)
	}
	if err := params.Validate(); err != nil {
		return errors.WithStack(err)
	}

	events, err := h.usecase.TokenEvents(ctx.UserContext(), params.Collection(), params.Token())
	if err != nil {
		return errors.Wrap(public(err), "error during TokenEvents")
	}
	logs, err := h.usecase.TokenLogs(ctx.UserContext(), params.Collection(), params.Token())
	if err != nil {
		return errors.Wrap(public(err), "error during TokenLogs")
	}

	return errors.WithStack(ctx.JSON(getTokenHistoryResponse{
		Result: &getTokenHistoryResult{
			Events: lo.Map(events, func(event *entity.Event, _ int) tokenEventResult {
				return tokenEventResult{
					Id:          event.Id,
					Kind:        string(event.Kind),
					From:        string(event.From),
					To:          string(event.To),
					Spender:     string(event.Spender),
					PropertyKey: string(event.PropertyKey),
					CreatedAt:   event.CreatedAt,
				}
			}),
			Logs: lo.Map(logs, func(log *entity.Erc721Log, _ int) tokenLogResult {
				return tokenLogResult{
					Id:        log.Id,
					Kind:      string(log.Kind),
					From:      string(log.From),
					To:        string(log.To),
					CreatedAt: log.CreatedAt,
				}
			}),
		},
	}))
}
