// internal/api/handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/rovshanmuradov/token-launchpad/internal/launch"
)

// CreateLaunchRequest is the body for POST /launches.
type CreateLaunchRequest struct {
	Creator      string `json:"creator" binding:"required"`
	Mode         string `json:"mode" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Symbol       string `json:"symbol" binding:"required"`
	MetadataURI  string `json:"metadata_uri"`
	TotalSupply  uint64 `json:"total_supply" binding:"required"`
	RaiseTarget  uint64 `json:"raise_target"`
	RaiseMaximum uint64 `json:"raise_maximum"`
	VestingDays  int    `json:"vesting_days" binding:"required"`
	BurnLP       bool   `json:"burn_lp"`
	InitialBuy   uint64 `json:"initial_buy"`
}

// ContributeRequest is the body for POST /launches/:mint/contributions.
type ContributeRequest struct {
	Contributor string `json:"contributor" binding:"required"`
	Amount      uint64 `json:"amount" binding:"required"`
}

// WalletRequest carries just the acting wallet.
type WalletRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// TradeRequest is the body for buy and sell.
type TradeRequest struct {
	Wallet     string `json:"wallet" binding:"required"`
	AmountIn   uint64 `json:"amount_in" binding:"required"`
	MinimumOut uint64 `json:"minimum_out"`
}

func parseKey(c *gin.Context, raw string) (solana.PublicKey, bool) {
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base58 public key: " + raw})
		return solana.PublicKey{}, false
	}
	return key, true
}

func mintParam(c *gin.Context) (solana.PublicKey, bool) {
	return parseKey(c, c.Param("mint"))
}

func (s *Server) createLaunch(c *gin.Context) {
	var req CreateLaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creator, ok := parseKey(c, req.Creator)
	if !ok {
		return
	}

	params := launch.CreateParams{
		Name:            req.Name,
		Symbol:          req.Symbol,
		MetadataURI:     req.MetadataURI,
		TotalSupply:     req.TotalSupply,
		RaiseTarget:     req.RaiseTarget,
		RaiseMaximum:    req.RaiseMaximum,
		VestingDuration: time.Duration(req.VestingDays) * 24 * time.Hour,
		BurnLP:          req.BurnLP,
	}

	var (
		mint solana.PublicKey
		err  error
	)
	switch launch.Mode(req.Mode) {
	case launch.ModeProjectRaise:
		mint, err = s.manager.CreateLaunch(creator, params)
	case launch.ModeInstantLaunch:
		mint, err = s.manager.CreateInstantLaunch(c.Request.Context(), creator, params, req.InitialBuy)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be PROJECT_RAISE or INSTANT_LAUNCH"})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"mint": mint.String()})
}

func (s *Server) listLaunches(c *gin.Context) {
	mints := s.manager.Mints()
	infos := make([]launch.LaunchInfo, 0, len(mints))
	for _, mint := range mints {
		info, err := s.manager.GetLaunchInfo(mint)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) getLaunch(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	info, err := s.manager.GetLaunchInfo(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) contribute(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	var req ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	contributor, ok := parseKey(c, req.Contributor)
	if !ok {
		return
	}

	if err := s.manager.Contribute(mint, contributor, req.Amount); err != nil {
		abortWithError(c, err)
		return
	}

	info, err := s.manager.GetContribution(mint, contributor)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getContribution(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	wallet, ok := parseKey(c, c.Param("wallet"))
	if !ok {
		return
	}

	info, err := s.manager.GetContribution(mint, wallet)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) getClaimable(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	wallet, ok := parseKey(c, c.Param("wallet"))
	if !ok {
		return
	}

	amounts, err := s.manager.GetClaimableAmounts(mint, wallet)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, amounts)
}

func (s *Server) claimContributor(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, ok := parseKey(c, req.Wallet)
	if !ok {
		return
	}

	tokens, err := s.manager.ClaimContributorTokens(mint, wallet)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (s *Server) claimRefund(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, ok := parseKey(c, req.Wallet)
	if !ok {
		return
	}

	refund, err := s.manager.ClaimRefund(mint, wallet)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refund_lamports": refund})
}

func (s *Server) claimFounder(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	var req WalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, ok := parseKey(c, req.Wallet)
	if !ok {
		return
	}

	tokens, err := s.manager.ClaimFounderTokens(mint, wallet)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (s *Server) graduate(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	if err := s.manager.GraduateToExternalPool(c.Request.Context(), mint); err != nil {
		abortWithError(c, err)
		return
	}

	info, err := s.manager.GetLaunchInfo(mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) buy(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, ok := parseKey(c, req.Wallet)
	if !ok {
		return
	}

	tokensOut, err := s.manager.BuyTokens(c.Request.Context(), mint, wallet, req.AmountIn, req.MinimumOut)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens_out": tokensOut})
}

func (s *Server) sell(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	wallet, ok := parseKey(c, req.Wallet)
	if !ok {
		return
	}

	nativeOut, err := s.manager.SellTokens(c.Request.Context(), mint, wallet, req.AmountIn, req.MinimumOut)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"native_out": nativeOut})
}

func (s *Server) getCurve(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}

	info, err := s.market.PoolInfo(c.Request.Context(), mint)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
