package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/service"
)

// AccountManager account operations exposed over HTTP
type AccountManager interface {
	ListAccounts(ctx context.Context) ([]service.AccountStatus, error)
	Unlink(ctx context.Context, accountID string) error
}

// AccountController linked account status and removal
type AccountController struct {
	accounts AccountManager
}

// NewAccountController creates the account controller
func NewAccountController(accounts AccountManager) *AccountController {
	return &AccountController{accounts: accounts}
}

// List GET /api/accounts
func (c *AccountController) List(ctx *gin.Context) {
	accounts, err := c.accounts.ListAccounts(ctx.Request.Context())
	if err != nil {
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "failed to list accounts",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code": http.StatusOK,
		"data": gin.H{
			"list":  accounts,
			"total": len(accounts),
		},
	})
}

// Delete DELETE /api/accounts/:id
// Removes the account together with its orders, trackings and guild links.
func (c *AccountController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if id == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "missing account id"})
		return
	}

	if err := c.accounts.Unlink(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "account not found"})
			return
		}
		_ = ctx.Error(err)
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "failed to unlink account",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "account unlinked",
		"data":    gin.H{"id": id},
	})
}
