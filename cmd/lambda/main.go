package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"sentinel/infrastructure/config"
	"sentinel/infrastructure/di"
	"sentinel/interfaces/http/rest"
	"sentinel/interfaces/http/rest/middleware"
	"sentinel/pkg/errors"
	"sentinel/pkg/observability"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Global variables for Lambda lifecycle management
var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	container *di.HistoryContainer
	tracer    *observability.SegmentTracer

	// coldStart tracks whether this is a cold start invocation
	coldStart     = true
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeHistoryContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	tracer = observability.NewSegmentTracer(cfg.ServiceName)

	debug := !cfg.IsProduction()
	router := rest.NewRouter(nil, container.QueryBus, rest.RouterConfig{
		Authenticate:   middleware.AuthenticateForLambda(middleware.DefaultLimits(), errors.NewErrorHandler(container.Logger, debug)),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableCORS:     cfg.EnableCORS,
		HistoryOnly:    true,
		Debug:          debug,
	}, container.Logger)

	chiRouter, ok := router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	container.Logger.Info("Lambda cold start completed", zap.Duration("duration", time.Since(coldStartTime)))
}

// authorize copies the claims API Gateway's JWT authorizer validated into
// the headers AuthenticateForLambda reads
func authorize(req *events.APIGatewayV2HTTPRequest) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	// Only this function may set the gateway headers
	for k := range req.Headers {
		switch http.CanonicalHeaderKey(k) {
		case "X-Api-Gateway-Authorized", "X-User-Id", "X-User-Email", "X-User-Roles":
			delete(req.Headers, k)
		}
	}

	if req.RequestContext.Authorizer == nil || req.RequestContext.Authorizer.JWT == nil {
		return
	}
	claims := req.RequestContext.Authorizer.JWT.Claims
	if claims["sub"] == "" {
		return
	}
	req.Headers["X-API-Gateway-Authorized"] = "true"
	req.Headers["X-User-ID"] = claims["sub"]
	if email := claims["email"]; email != "" {
		req.Headers["X-User-Email"] = email
	}
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	authorize(&req)
	tracer.Annotate(ctx, "path", req.RequestContext.HTTP.Path)

	var resp events.APIGatewayV2HTTPResponse
	err := tracer.Trace(ctx, "proxy", func(ctx context.Context) error {
		var err error
		resp, err = chiLambda.ProxyWithContextV2(ctx, req)
		return err
	})

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", resp.Body),
		)
	}

	return resp, err
}

func main() {
	lambda.Start(Handler)
}
