package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/stas-makutin/skillgate/internal/skill"
	"github.com/stas-makutin/skillgate/internal/skillauth"
	"go.uber.org/zap"
)

const certificateCacheTTL = 24 * time.Hour

// settings are read from the function environment:
//
//	SKILL_APPLICATION_IDS       comma separated skill ids, empty accepts any
//	SKILL_PREFER_SIGNATURE256   true to verify Signature-256 when present
//	SKILL_TIMESTAMP_TOLERANCE   Go duration, default 30s
//	SKILL_FETCH_TIMEOUT         Go duration, default 2s
//	SKILL_LAUNCH, SKILL_HELP, SKILL_STOP, SKILL_FALLBACK, SKILL_CARD_TITLE
//	LOG_LEVEL                   debug, info, warn or error
type settings struct {
	applicationIDs     []string
	preferSignature256 bool
	timestampTolerance time.Duration
	fetchTimeout       time.Duration
	responses          skill.Responses
	logLevel           string
}

func loadSettings(getenv func(string) string) (settings, error) {
	s := settings{
		preferSignature256: strings.EqualFold(getenv("SKILL_PREFER_SIGNATURE256"), "true"),
		responses: skill.Responses{
			Launch:        getenv("SKILL_LAUNCH"),
			Help:          getenv("SKILL_HELP"),
			Stop:          getenv("SKILL_STOP"),
			Fallback:      getenv("SKILL_FALLBACK"),
			LinkAccount:   getenv("SKILL_LINK_ACCOUNT"),
			CardTitle:     getenv("SKILL_CARD_TITLE"),
			SmallImageURL: getenv("SKILL_SMALL_IMAGE_URL"),
			LargeImageURL: getenv("SKILL_LARGE_IMAGE_URL"),
		},
		logLevel: getenv("LOG_LEVEL"),
	}
	for _, id := range strings.Split(getenv("SKILL_APPLICATION_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			s.applicationIDs = append(s.applicationIDs, id)
		}
	}

	var err error
	if v := getenv("SKILL_TIMESTAMP_TOLERANCE"); v != "" {
		if s.timestampTolerance, err = time.ParseDuration(v); err != nil || s.timestampTolerance < 0 {
			return s, fmt.Errorf("SKILL_TIMESTAMP_TOLERANCE is not valid: %v", v)
		}
	}
	if v := getenv("SKILL_FETCH_TIMEOUT"); v != "" {
		if s.fetchTimeout, err = time.ParseDuration(v); err != nil || s.fetchTimeout < 0 {
			return s, fmt.Errorf("SKILL_FETCH_TIMEOUT is not valid: %v", v)
		}
	}
	for name, v := range map[string]string{
		"SKILL_SMALL_IMAGE_URL": s.responses.SmallImageURL,
		"SKILL_LARGE_IMAGE_URL": s.responses.LargeImageURL,
	} {
		if v == "" {
			continue
		}
		if err := skill.ValidateImageURL(v); err != nil {
			return s, fmt.Errorf("%v is not valid: %v", name, err)
		}
	}
	return s, nil
}

func newHandler(s settings, fetcher skillauth.CertificateFetcher, logger *zap.Logger) *skill.Handler {
	cfg := skillauth.DefaultConfig()
	if s.timestampTolerance > 0 {
		cfg.TimestampTolerance = s.timestampTolerance
	}
	if fetcher == nil {
		fetcher = skillauth.NewCachingFetcher(
			skillauth.NewHTTPFetcher(s.fetchTimeout),
			skillauth.NewMemoryStore(certificateCacheTTL),
			certificateCacheTTL,
			logger,
		)
	}
	return &skill.Handler{
		Verifier:           skillauth.NewVerifier(cfg, fetcher, skillauth.WithLogger(logger)),
		Applications:       skill.NewApplicationMatcher(s.applicationIDs...),
		Responses:          s.responses,
		PreferSignature256: s.preferSignature256,
		Logger:             logger,
	}
}

func requestHeader(event events.APIGatewayProxyRequest) http.Header {
	header := make(http.Header)
	for k, v := range event.Headers {
		header.Set(k, v)
	}
	for k, values := range event.MultiValueHeaders {
		header.Del(k)
		for _, v := range values {
			header.Add(k, v)
		}
	}
	return header
}

func requestBody(event events.APIGatewayProxyRequest) ([]byte, error) {
	if event.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(event.Body)
	}
	return []byte(event.Body), nil
}

type gateway struct {
	handler *skill.Handler
	logger  *zap.Logger
}

func (g *gateway) handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body, err := requestBody(event)
	if err != nil {
		g.logger.Info("request body is not valid base64", zap.Error(err))
		return textResponse(http.StatusBadRequest), nil
	}

	result := g.handler.Serve(ctx, requestHeader(event), body)
	if result.Status != http.StatusOK {
		return textResponse(result.Status), nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: result.Status,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       string(result.Body),
	}, nil
}

func textResponse(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       http.StatusText(status),
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL is not valid: %v", level)
		}
	}
	return cfg.Build()
}

func main() {
	s, err := loadSettings(os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := newLogger(s.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("skill gateway function starting",
		zap.Int("applications", len(s.applicationIDs)),
		zap.Duration("fetchTimeout", s.fetchTimeout),
	)

	g := &gateway{handler: newHandler(s, nil, logger), logger: logger}
	lambda.Start(g.handle)
}
