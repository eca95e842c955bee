// internal/api/server.go

// Package api exposes the launchpad over HTTP. Handlers are thin: they
// parse base58 keys and amounts, call the engine, and map sentinel errors
// to status codes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/amm"
	"github.com/rovshanmuradov/token-launchpad/internal/curve"
	"github.com/rovshanmuradov/token-launchpad/internal/custody"
	"github.com/rovshanmuradov/token-launchpad/internal/launch"
	"github.com/rovshanmuradov/token-launchpad/internal/token"
)

// Server wires the engine into a gin router.
type Server struct {
	manager *launch.Manager
	market  *curve.Market
	vault   *custody.Vault
	logger  *zap.Logger

	httpServer *http.Server
}

// NewServer builds the server and its routes.
func NewServer(manager *launch.Manager, market *curve.Market, vault *custody.Vault, addr string, logger *zap.Logger) *Server {
	s := &Server{
		manager: manager,
		market:  market,
		vault:   vault,
		logger:  logger.Named("api"),
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router assembles the route table.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		launches := v1.Group("/launches")
		{
			launches.POST("", s.createLaunch)
			launches.GET("", s.listLaunches)
			launches.GET("/:mint", s.getLaunch)
			launches.POST("/:mint/contributions", s.contribute)
			launches.GET("/:mint/contributions/:wallet", s.getContribution)
			launches.GET("/:mint/claimable/:wallet", s.getClaimable)
			launches.POST("/:mint/claims/contributor", s.claimContributor)
			launches.POST("/:mint/claims/refund", s.claimRefund)
			launches.POST("/:mint/claims/founder", s.claimFounder)
			launches.POST("/:mint/graduate", s.graduate)
			launches.POST("/:mint/buy", s.buy)
			launches.POST("/:mint/sell", s.sell)
			launches.GET("/:mint/curve", s.getCurve)
		}

		locks := v1.Group("/custody")
		{
			locks.GET("/stats", s.platformStats)
			locks.GET("/:mint", s.getLock)
			locks.GET("/:mint/harvests", s.harvestHistory)
			locks.POST("/:mint/harvest", s.harvest)
			locks.POST("/:mint/unlock", s.unlock)
			locks.POST("/:mint/extend", s.extendLock)
		}
	}

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// statusFor maps engine sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, launch.ErrLaunchNotFound),
		errors.Is(err, curve.ErrPoolNotFound),
		errors.Is(err, amm.ErrPoolNotFound),
		errors.Is(err, custody.ErrLockNotFound),
		errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, launch.ErrNoContribution):
		return http.StatusNotFound

	case errors.Is(err, launch.ErrInvalidParams):
		return http.StatusBadRequest

	case errors.Is(err, launch.ErrNotCreator),
		errors.Is(err, custody.ErrNotLockCreator):
		return http.StatusForbidden

	case errors.Is(err, launch.ErrAlreadyClaimed),
		errors.Is(err, launch.ErrAlreadyRefunded),
		errors.Is(err, launch.ErrAlreadyGraduated),
		errors.Is(err, launch.ErrRaiseAlreadyCompleted),
		errors.Is(err, custody.ErrLockExists):
		return http.StatusConflict

	case errors.Is(err, launch.ErrDeadlinePassed),
		errors.Is(err, launch.ErrPerWalletCapExceeded),
		errors.Is(err, launch.ErrRaiseMaximumExceeded),
		errors.Is(err, launch.ErrRaiseNotCompleted),
		errors.Is(err, launch.ErrRaiseStillActive),
		errors.Is(err, launch.ErrRaiseWasSuccessful),
		errors.Is(err, launch.ErrNotEligible),
		errors.Is(err, launch.ErrWrongMode),
		errors.Is(err, launch.ErrTradingUnavailable),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, curve.ErrSlippageExceeded),
		errors.Is(err, amm.ErrSlippageExceeded),
		errors.Is(err, curve.ErrAlreadyGraduated),
		errors.Is(err, custody.ErrCooldownActive),
		errors.Is(err, custody.ErrLockNotExpired),
		errors.Is(err, custody.ErrLockInactive),
		errors.Is(err, custody.ErrZeroExtension),
		errors.Is(err, custody.ErrNothingToHarvest):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
