package http

import (
	"net/http"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/wb-go/wbf/ginext"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"github.com/yokitheyo/imageresizer/internal/dto"
	"github.com/yokitheyo/imageresizer/internal/handler/middleware"
)

// NewRouter builds the engine with middleware and every route mounted.
func NewRouter(ginMode string, service domain.ImageService, maxUploadBytes int64) *ginext.Engine {
	engine := ginext.New(ginMode)
	engine.Use(
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	engine.GET("/health", Health)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	NewImageHandler(service, maxUploadBytes).RegisterRoutes(engine)

	return engine
}

// Health GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  dto.HealthResponse
// @Router   /health [get]
func Health(c *ginext.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
