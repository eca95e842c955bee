// internal/api/custody_handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ExtendLockRequest is the body for POST /custody/:mint/extend.
type ExtendLockRequest struct {
	Wallet    string `json:"wallet" binding:"required"`
	ExtraDays int    `json:"extra_days" binding:"required"`
}

func (s *Server) getLock(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	info, err := s.vault.GetLockInfo(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) harvestHistory(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	history, err := s.vault.GetHarvestHistory(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// harvest triggers a fee harvest. Permissionless: the split is fixed, so
// the caller cannot redirect anything by calling it.
func (s *Server) harvest(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	result, err := s.vault.HarvestFees(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// unlock releases an expired lock to its creator. Also permissionless.
func (s *Server) unlock(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	lpShares, err := s.vault.UnlockLP(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lp_shares": lpShares})
}

func (s *Server) extendLock(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	var req ExtendLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, ok := parseKey(c, req.Wallet)
	if !ok {
		return
	}

	extra := time.Duration(req.ExtraDays) * 24 * time.Hour
	if err := s.vault.ExtendLock(mint, wallet, extra); err != nil {
		abortWithError(c, err)
		return
	}

	info, err := s.vault.GetLockInfo(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) platformStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.vault.GetPlatformStats())
}
