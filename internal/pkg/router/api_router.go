package router

import (
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/ManuelReschke/PlanFox/internal/api/v1"

	"github.com/ManuelReschke/PlanFox/app/repository"
	"github.com/ManuelReschke/PlanFox/internal/pkg/constants"
	"github.com/ManuelReschke/PlanFox/internal/pkg/env"
	"github.com/ManuelReschke/PlanFox/internal/pkg/levelcache"
	"github.com/ManuelReschke/PlanFox/internal/pkg/matcher"
	"github.com/ManuelReschke/PlanFox/internal/pkg/middleware"
	"github.com/ManuelReschke/PlanFox/internal/pkg/tokenstore"
	"github.com/ManuelReschke/PlanFox/internal/pkg/validation"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	repos := repository.GetGlobalRepositories()

	cacheStore := levelcache.New(sharedTierFromEnv(), cacheTTLFromEnv())
	counter := counterFromEnv()

	tokens := tokenstore.New(repos.Token)
	validator := validation.New(rulesFromEnv(), repos.Content, counter)
	planMatcher := matcher.New(repos.Plan, repos.Group, repos.Content, cacheStore, validator)

	server := apiv1.NewAPIServer(validator, planMatcher, cacheStore, debugFromEnv())

	api := app.Group(constants.APIRoute)
	v1 := api.Group(constants.APIV1Route)
	v1.Get(constants.PingRoute, server.GetPing)

	if !env.GetBool("PLANS_ENDPOINT_ENABLED", true) {
		log.Print("router: plans endpoint disabled via PLANS_ENDPOINT_ENABLED")
		return
	}

	protected := v1.Group("", middleware.BearerAuthMiddleware(tokens))
	protected.Post(constants.PlansRoute, server.PostPlan)
	protected.Post(constants.CacheInvalidateRoute, server.PostCacheInvalidate)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

// sharedTierFromEnv selects the shared cache backend. Redis is the default;
// CACHE_DRIVER=memory serves single-node setups without a cache server.
func sharedTierFromEnv() levelcache.SharedStore {
	if env.GetEnv("CACHE_DRIVER", "redis") == "memory" {
		return levelcache.NewMemoryStore()
	}
	return levelcache.NewRedisStore()
}

func counterFromEnv() validation.Counter {
	if env.GetEnv("CACHE_DRIVER", "redis") == "memory" {
		return validation.NewMemoryCounter()
	}
	return validation.NewRedisCounter()
}

func cacheTTLFromEnv() time.Duration {
	seconds := envInt("CACHE_TTL_SECONDS", int(levelcache.DefaultTTL.Seconds()))
	return time.Duration(seconds) * time.Second
}

// rulesFromEnv builds the validation policy, starting from the defaults and
// applying every override the environment provides.
func rulesFromEnv() validation.Rules {
	rules := validation.DefaultRules()

	rules.MinNameLength = envInt("MIN_NAME_LENGTH", rules.MinNameLength)
	rules.MaxNameLength = envInt("MAX_NAME_LENGTH", rules.MaxNameLength)
	rules.MaxBillingLimit = envInt("MAX_BILLING_LIMIT", rules.MaxBillingLimit)
	rules.MaxLevelsPerDay = envInt("MAX_LEVELS_PER_DAY", rules.MaxLevelsPerDay)
	rules.AllowFreeLevels = env.GetBool("ALLOW_FREE_LEVELS", rules.AllowFreeLevels)
	rules.RequireInitialPayment = env.GetBool("REQUIRE_INITIAL_PAYMENT", rules.RequireInitialPayment)

	rules.RateLimit.Enabled = env.GetBool("RATE_LIMIT_ENABLED", rules.RateLimit.Enabled)
	rules.RateLimit.MaxRequests = envInt("RATE_LIMIT_MAX_REQUESTS", rules.RateLimit.MaxRequests)
	windowSeconds := envInt("RATE_LIMIT_WINDOW_SECONDS", int(rules.RateLimit.Window.Seconds()))
	rules.RateLimit.Window = time.Duration(windowSeconds) * time.Second

	if blacklist := env.GetEnv("NAME_BLACKLIST", ""); blacklist != "" {
		for _, word := range strings.Split(blacklist, ",") {
			if trimmed := strings.TrimSpace(word); trimmed != "" {
				rules.NameBlacklist = append(rules.NameBlacklist, trimmed)
			}
		}
	}

	if pattern := env.GetEnv("NAME_PATTERN", ""); pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			log.Printf("router: ignoring invalid NAME_PATTERN: %v", err)
		} else {
			rules.NamePattern = compiled
		}
	}

	if minPrice := env.GetEnv("MIN_PRICE", ""); minPrice != "" {
		if val, err := strconv.ParseFloat(minPrice, 64); err == nil {
			rules.MinPrice = &val
		}
	}
	if maxPrice := env.GetEnv("MAX_PRICE", ""); maxPrice != "" {
		if val, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			rules.MaxPrice = &val
		}
	}
	if increment := env.GetEnv("PRICE_INCREMENT", ""); increment != "" {
		if val, err := strconv.ParseFloat(increment, 64); err == nil {
			rules.PriceIncrement = &val
		}
	}

	return rules
}

func debugFromEnv() apiv1.DebugConfig {
	return apiv1.DebugConfig{
		EchoParams:   env.GetBool("DEBUG_ECHO_PARAMS", false),
		LogRejected:  env.GetBool("DEBUG_LOG_REJECTED", false),
		LogParams:    env.GetBool("DEBUG_LOG_PARAMS", false),
		LogMaxLength: envInt("DEBUG_LOG_MAX_LENGTH", 0),
	}
}

func envInt(key string, def int) int {
	val := env.GetEnv(key, "")
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("router: ignoring non-numeric %s=%q", key, val)
		return def
	}
	return parsed
}
