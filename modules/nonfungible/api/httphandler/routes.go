package httphandler

import (
	"github.com/gofiber/fiber/v2"
)

func (h *HttpHandler) Mount(router fiber.Router) error {
	r := router.Group("/v1/nft")

	r.Post("/collections", h.CreateCollection)
	r.Get("/collections/:collectionId", h.GetCollection)
	r.Delete("/collections/:collectionId", h.DestroyCollection)
	r.Get("/collections/:collectionId/tokens", h.GetCollectionTokens)
	r.Put("/collections/:collectionId/limits", h.SetCollectionLimits)
	r.Put("/collections/:collectionId/permissions", h.SetCollectionPermissions)
	r.Put("/collections/:collectionId/owner", h.ChangeCollectionOwner)
	r.Post("/collections/:collectionId/admins", h.AddCollectionAdmin())
	r.Delete("/collections/:collectionId/admins", h.RemoveCollectionAdmin())
	r.Post("/collections/:collectionId/allowlist", h.AddToAllowList())
	r.Delete("/collections/:collectionId/allowlist", h.RemoveFromAllowList())
	r.Post("/collections/:collectionId/properties", h.ModifyCollectionProperties)
	r.Put("/collections/:collectionId/property-permissions", h.SetTokenPropertyPermissions)

	r.Post("/collections/:collectionId/tokens", h.MintTokens)
	r.Get("/collections/:collectionId/tokens/:tokenId", h.GetToken)
	r.Get("/collections/:collectionId/tokens/:tokenId/history", h.GetTokenHistory)
	r.Post("/collections/:collectionId/tokens/:tokenId/transfer", h.TransferToken)
	r.Post("/collections/:collectionId/tokens/:tokenId/burn", h.BurnToken)
	r.Post("/collections/:collectionId/tokens/:tokenId/burn-recursively", h.BurnTokenRecursively)
	r.Put("/collections/:collectionId/tokens/:tokenId/allowance", h.SetAllowance)
	r.Post("/collections/:collectionId/tokens/:tokenId/properties", h.ModifyTokenProperties)
	r.Put("/collections/:collectionId/tokens/:tokenId/aux-properties", h.SetAuxProperty)
	r.Delete("/collections/:collectionId/tokens/:tokenId/aux-properties", h.RemoveAuxProperty)

	r.Get("/collections/:collectionId/accounts/:account/tokens", h.GetAccountTokens)
	return nil
}
