package routes

import (
	"log"
	"net/http"

	_ "mecanica_marketplace/docs" // generated by swag init
	"mecanica_marketplace/internal/adapter/http/handlers"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers groups the HTTP handlers mounted under /v1.
type Handlers struct {
	Jobs         *handlers.JobHandler
	Bids         *handlers.BidHandler
	ChangeOrders *handlers.ChangeOrderHandler
	Sweeps       *handlers.SweepHandler
}

// NewRouter builds the gin engine with middlewares, swagger and the /v1 routes.
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()
	setMiddlewares(router)

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Rotas publicas
	v1 := router.Group("/v1")
	addPingRoutes(v1)
	addJobRoutes(v1, h.Jobs)
	addBidRoutes(v1, h.Bids)
	addChangeOrderRoutes(v1, h.ChangeOrders)
	addSweepRoutes(v1, h.Sweeps)
	return router
}

func setMiddlewares(router *gin.Engine) {
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("Recovered from panic: %v", recovered)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
}
