package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"livebid-service/internal/adapters/ws"
	"livebid-service/internal/auth"
	"livebid-service/internal/config"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Server serves the REST API and the websocket endpoint on one listener
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config         *config.Config
	AuctionService inbound.AuctionService
	BidService     inbound.BidService
	Broadcaster    outbound.Broadcaster
	Verifier       *auth.TokenVerifier
	Logger         zerolog.Logger
}

// NewServer wires routes, middleware and the websocket handler
func NewServer(params ServerParams) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(params.Logger))

	handlers := NewHandlers(HandlersParams{
		AuctionService: params.AuctionService,
		BidService:     params.BidService,
		Logger:         params.Logger,
	})

	wsHandler := ws.NewHandler(ws.WsHandlerParams{
		Config:      params.Config,
		Verifier:    params.Verifier,
		Broadcaster: params.Broadcaster,
		Logger:      params.Logger,
	})

	engine.GET("/health", handlers.Health)
	engine.GET("/ws", gin.WrapF(wsHandler.HandleWebSocket))

	api := engine.Group("/api")
	{
		auctions := api.Group("/auctions")
		{
			auctions.GET("", handlers.ListAuctions)
			auctions.GET("/:id", handlers.GetAuction)
			auctions.POST("", RequireAuth(params.Verifier), RequireAdmin(), handlers.CreateAuction)
			auctions.DELETE("/:id", RequireAuth(params.Verifier), RequireAdmin(), handlers.DeleteAuction)
			auctions.POST("/:id/bids", RequireAuth(params.Verifier), handlers.PlaceBid)
		}

		bids := api.Group("/bids")
		{
			bids.GET("/my-bids", RequireAuth(params.Verifier), handlers.GetMyBids)
		}
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		engine:     engine,
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
