package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stas-makutin/skillgate/internal/skill"
	"github.com/stas-makutin/skillgate/internal/skillauth"
	"go.uber.org/zap"
)

const defaultCertificateCacheTTL = 24 * time.Hour

// alexaSkill serves the skill route; set by validateAlexaConfig.
var alexaSkill *skill.Handler

func validateAlexaConfig(cfgError configError) {
	alexaSkill = nil

	cfg := AlexaConfig{}
	if config.Alexa != nil {
		cfg = *config.Alexa
	}
	if len(cfg.ApplicationIDs) == 0 {
		logger.Warn("alexa.applicationIds is empty, requests of any skill are accepted")
	}

	authCfg, fetcher, ok := alexaVerifierConfig(cfg.Certificate, cfgError)
	if !ok {
		return
	}

	responses := skill.Responses{}
	if cfg.Responses != nil && cfg.ResponsesConfig != "" {
		cfgError("alexa.responses and alexa.responsesConfig are mutually exclusive.")
		return
	}
	if cfg.ResponsesConfig != "" {
		var r AlexaResponses
		if err := loadSubConfig(cfg.ResponsesConfig, &r); err != nil {
			cfgError(fmt.Sprintf("alexa.responsesConfig '%v' could not be loaded: %v", cfg.ResponsesConfig, err))
			return
		}
		cfg.Responses = &r
	}
	if cfg.Responses != nil {
		valid := true
		for name, imageURL := range map[string]string{
			"smallImageUrl": cfg.Responses.SmallImageURL,
			"largeImageUrl": cfg.Responses.LargeImageURL,
		} {
			if imageURL == "" {
				continue
			}
			if err := skill.ValidateImageURL(imageURL); err != nil {
				cfgError(fmt.Sprintf("alexa.responses.%v is not valid: %v", name, err))
				valid = false
			}
		}
		if !valid {
			return
		}
		responses = skill.Responses{
			Launch:        cfg.Responses.Launch,
			Help:          cfg.Responses.Help,
			Stop:          cfg.Responses.Stop,
			Fallback:      cfg.Responses.Fallback,
			LinkAccount:   cfg.Responses.LinkAccount,
			CardTitle:     cfg.Responses.CardTitle,
			SmallImageURL: cfg.Responses.SmallImageURL,
			LargeImageURL: cfg.Responses.LargeImageURL,
			Intents:       cfg.Responses.Intents,
		}
	}

	verifier := skillauth.NewVerifier(authCfg, fetcher, skillauth.WithLogger(logger.Named("skillauth")))

	handler := &skill.Handler{
		Verifier:           &instrumentedVerifier{next: verifier, metrics: metrics},
		Applications:       skill.NewApplicationMatcher(cfg.ApplicationIDs...),
		Responses:          responses,
		PreferSignature256: cfg.PreferSignature256,
		Logger:             logger.Named("skill"),
	}
	if config.Authorization != nil {
		handler.AccessTokens = jwtAccessTokens{scope: accessTokenScope}
	}
	alexaSkill = handler
}

func alexaVerifierConfig(certCfg *AlexaCertificateConfig, cfgError configError) (skillauth.Config, skillauth.CertificateFetcher, bool) {
	authCfg := skillauth.DefaultConfig()
	httpFetcher := skillauth.NewHTTPFetcher(skillauth.DefaultFetchTimeout)
	httpFetcher.UserAgent = appName
	if certCfg == nil {
		return authCfg, newCachingFetcher(httpFetcher, memoryCertificateStore(defaultCertificateCacheTTL), defaultCertificateCacheTTL), true
	}

	valid := true
	fail := func(msg string) {
		cfgError(msg)
		valid = false
	}
	parseDuration := func(src, name string) time.Duration {
		if src == "" {
			return 0
		}
		duration, err := parseTimeDuration(src)
		if err == nil && duration < 0 {
			err = fmt.Errorf("negative value not allowed")
		}
		if err != nil {
			fail(fmt.Sprintf("%v is not valid: %v", name, err))
		}
		return duration
	}

	if certCfg.Host != "" {
		authCfg.Host = certCfg.Host
	}
	if certCfg.PathPrefix != "" {
		if !strings.HasPrefix(certCfg.PathPrefix, "/") {
			fail("alexa.certificate.pathPrefix must start with '/'.")
		}
		authCfg.PathPrefix = certCfg.PathPrefix
	}
	if certCfg.Port != 0 {
		if certCfg.Port < 1 || certCfg.Port > 65535 {
			fail("alexa.certificate.port must be between 1 and 65535.")
		}
		authCfg.Port = certCfg.Port
	}
	if certCfg.ServiceDomain != "" {
		authCfg.ServiceDomain = certCfg.ServiceDomain
	}
	if d := parseDuration(certCfg.TimestampTolerance, "alexa.certificate.timestampTolerance"); d > 0 {
		authCfg.TimestampTolerance = d
	}
	authCfg.MaxFutureSkew = parseDuration(certCfg.MaxFutureSkew, "alexa.certificate.maxFutureSkew")
	authCfg.VerifyChain = certCfg.VerifyChain

	if d := parseDuration(certCfg.FetchTimeout, "alexa.certificate.fetchTimeout"); d > 0 {
		httpFetcher = skillauth.NewHTTPFetcher(d)
		httpFetcher.UserAgent = appName
	}
	if certCfg.MaxSize != "" {
		size, err := parseSizeString(certCfg.MaxSize)
		if err == nil && size <= 0 {
			err = fmt.Errorf("positive value expected")
		}
		if err != nil {
			fail(fmt.Sprintf("alexa.certificate.maxSize is not valid: %v", err))
		}
		httpFetcher.MaxSize = size
	}

	if certCfg.Cache == nil {
		return authCfg, newCachingFetcher(httpFetcher, memoryCertificateStore(defaultCertificateCacheTTL), defaultCertificateCacheTTL), valid
	}

	ttl := defaultCertificateCacheTTL
	if d := parseDuration(certCfg.Cache.TTL, "alexa.certificate.cache.ttl"); d > 0 {
		ttl = d
	}

	var store skillauth.CertificateStore
	switch strings.ToLower(certCfg.Cache.Driver) {
	case "", "memory":
		store = memoryCertificateStore(ttl)
	case "redis":
		if certCfg.Cache.Redis == nil || certCfg.Cache.Redis.Address == "" {
			fail("alexa.certificate.cache.redis.address is required for redis driver.")
			break
		}
		if !valid {
			break
		}
		s, err := redisCertificateStore(certCfg.Cache.Redis)
		if err != nil {
			fail(fmt.Sprintf("alexa.certificate.cache.redis is not reachable: %v", err))
			break
		}
		store = s
	case "none":
		return authCfg, &instrumentedFetcher{next: httpFetcher, metrics: metrics}, valid
	default:
		fail(fmt.Sprintf("alexa.certificate.cache.driver '%v' is unknown, expected memory, redis or none.", certCfg.Cache.Driver))
	}
	if !valid {
		return authCfg, nil, false
	}
	return authCfg, newCachingFetcher(httpFetcher, store, ttl), true
}

func newCachingFetcher(httpFetcher *skillauth.HTTPFetcher, store skillauth.CertificateStore, ttl time.Duration) skillauth.CertificateFetcher {
	return skillauth.NewCachingFetcher(
		&instrumentedFetcher{next: httpFetcher, metrics: metrics},
		store,
		ttl,
		logger.Named("certcache"),
	)
}

func memoryCertificateStore(ttl time.Duration) skillauth.CertificateStore {
	return skillauth.NewMemoryStore(ttl)
}

func redisCertificateStore(cfg *RedisCache) (skillauth.CertificateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("certificate cache uses redis", zap.String("address", cfg.Address), zap.Int("db", cfg.DB))
	return skillauth.NewRedisStore(client, cfg.Prefix), nil
}
