package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nemozak1/API-Explorer-II/internal/config"
	"github.com/nemozak1/API-Explorer-II/internal/http/handler"
	httpmiddleware "github.com/nemozak1/API-Explorer-II/internal/http/middleware"
	"github.com/nemozak1/API-Explorer-II/internal/middleware"
	"github.com/nemozak1/API-Explorer-II/internal/session"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, opeyHandler *handler.OpeyHandler, sessions *session.Middleware, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(sessions.Handler())

	api := r.Group("/api")
	{
		opeyGroup := api.Group("/opey")
		{
			opeyGroup.GET("", opeyHandler.Status)
			opeyGroup.POST("/invoke", opeyHandler.Invoke)
			opeyGroup.POST("/stream", opeyHandler.Stream)
			opeyGroup.POST("/consent", opeyHandler.IssueConsent)
			opeyGroup.POST("/consent/answer-challenge", opeyHandler.AnswerConsentChallenge)
			opeyGroup.POST("/token", opeyHandler.IssueToken)
		}
	}

	return r
}
