// Package main is the API Gateway entrypoint. API Gateway's JWT
// authorizer validates tokens before invocation; this handler forwards
// the authorizer claims to the router as trusted headers.
package main

import (
	"context"
	"log"
	"time"

	"lattice/infrastructure/config"
	"lattice/infrastructure/di"
	"lattice/interfaces/http/rest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container

	coldStart     = true
	coldStartTime time.Time
)

func init() {
	coldStartTime = time.Now()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.NewContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	if cfg.SchemaSeedFile != "" {
		if err := container.Seeder.Apply(ctx, cfg.SchemaSeedFile, cfg.SeedWorkspaceID); err != nil {
			container.Logger.Fatal("Schema seeding failed",
				zap.String("file", cfg.SchemaSeedFile),
				zap.Error(err),
			)
		}
	}

	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		cfg,
		container.RateLimiter,
		container.Logger,
	)

	chiRouter, ok := router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Router setup did not produce a chi mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)),
	)
}

// Handler proxies API Gateway requests through the chi router
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	forwardAuthorizerClaims(&req)

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("requestID", req.RequestContext.RequestID),
		)
	}

	return resp, err
}

// forwardAuthorizerClaims turns the API Gateway JWT authorizer result
// into the user context headers the authentication middleware trusts.
// Requests that never passed the authorizer get no headers and are
// rejected downstream.
func forwardAuthorizerClaims(req *events.APIGatewayV2HTTPRequest) {
	authorizer := req.RequestContext.Authorizer
	if authorizer == nil || authorizer.JWT == nil {
		return
	}

	claims := authorizer.JWT.Claims
	userID := claims["sub"]
	if userID == "" {
		return
	}

	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	req.Headers["X-API-Gateway-Authorized"] = "true"
	req.Headers["X-User-ID"] = userID
	if email := claims["email"]; email != "" {
		req.Headers["X-User-Email"] = email
	}
	if roles := claims["roles"]; roles != "" {
		req.Headers["X-User-Roles"] = roles
	}
}

func main() {
	lambda.Start(Handler)
}
