package main

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/time/rate"
)

const (
	routeAlexaSkill = iota
	routeHealth
	routeMetrics
)

// route type names as written in the configuration
var routeTypeNames = map[string]int{
	"alexa-skill": routeAlexaSkill,
	"health":      routeHealth,
	"metrics":     routeMetrics,
}

var knownMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

type routeInfo struct {
	path        string
	rateLimit   float64
	rateBurst   int
	maxBodySize int64
	methods     []string
}

var dedicatedRoutes map[int]*routeInfo

func defaultRoutes() map[int]*routeInfo {
	return map[int]*routeInfo{
		routeAlexaSkill: {path: "/alexa/skill", rateLimit: 50, rateBurst: 10, maxBodySize: 128 << 10, methods: []string{http.MethodPost}},
		routeHealth:     {path: "/health", rateLimit: 10, rateBurst: 3, maxBodySize: 256, methods: []string{http.MethodGet, http.MethodHead}},
		routeMetrics:    {path: "/metrics", rateLimit: 5, rateBurst: 2, maxBodySize: 256, methods: []string{http.MethodGet}},
	}
}

func validateRouteConfig(cfgError configError) {
	dedicatedRoutes = defaultRoutes()
	if config.Routes != nil {
		for i, route := range *config.Routes {
			applyRoute(route, func(msg string) {
				cfgError(fmt.Sprintf("routes, route %v: %v", i, msg))
			})
		}
	}

	owners := make(map[string][]int)
	for routeType, ri := range dedicatedRoutes {
		owners[ri.path] = append(owners[ri.path], routeType)
	}
	for path, types := range owners {
		if len(types) > 1 {
			slices.Sort(types)
			cfgError(fmt.Sprintf("routes: path '%v' is used by more than one route %v.", path, types))
		}
	}
}

// applyRoute overrides the defaults of one dedicated route. Invalid values
// are reported and leave the default in place.
func applyRoute(route Route, routeError configError) {
	routeType, ok := routeTypeNames[strings.ToLower(route.Type)]
	if !ok {
		routeError(fmt.Sprintf("unknown type '%v'.", route.Type))
		return
	}
	ri := dedicatedRoutes[routeType]

	if route.Path != "" {
		path, err := parseRoutePath(route.Path)
		if err != nil {
			routeError(fmt.Sprintf("invalid path '%v': %v", route.Path, err))
		} else {
			ri.path = path
		}
	}
	if route.RateLimit != "" {
		limit, burst, err := parseRateLimit(route.RateLimit)
		if err != nil {
			routeError(fmt.Sprintf("invalid rateLimit value '%v': %v", route.RateLimit, err))
		} else {
			ri.rateLimit, ri.rateBurst = limit, burst
		}
	}
	if route.MaxBodySize != "" {
		size, err := parseSizeString(route.MaxBodySize)
		if err == nil && size < 0 {
			err = fmt.Errorf("negative value not allowed")
		}
		if err != nil {
			routeError(fmt.Sprintf("invalid maxBodySize value '%v': %v", route.MaxBodySize, err))
		} else {
			ri.maxBodySize = size
		}
	}
	if route.Methods != "" {
		methods, err := parseRouteMethods(route.Methods)
		if err != nil {
			routeError(fmt.Sprintf("invalid methods value '%v': %v", route.Methods, err))
		} else {
			ri.methods = methods
		}
	}
}

// parseRoutePath accepts a bare URI path, adding the leading slash if needed.
func parseRoutePath(path string) (string, error) {
	path = "/" + strings.TrimPrefix(path, "/")
	u, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if u.Path != path {
		return "", fmt.Errorf("path must contain URI path only")
	}
	return path, nil
}

func isListSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

// parseRateLimit reads "limit[,burst]" where limit is requests per second.
// Burst defaults to 1.
func parseRateLimit(value string) (float64, int, error) {
	parts := strings.FieldsFunc(value, isListSeparator)
	if len(parts) == 0 || len(parts) > 2 {
		return 0, 0, fmt.Errorf("expected limit and optional burst value, comma or semicolon separated")
	}
	limit, err := strconv.ParseFloat(parts[0], 64)
	if err == nil && limit < 0 {
		err = fmt.Errorf("negative value not allowed")
	}
	if err != nil {
		return 0, 0, fmt.Errorf("invalid limit value '%v': %v", parts[0], err)
	}
	if len(parts) == 1 {
		return limit, 1, nil
	}
	burst, err := strconv.Atoi(parts[1])
	if err == nil && burst < 1 {
		err = fmt.Errorf("positive value expected")
	}
	if err != nil {
		return 0, 0, fmt.Errorf("invalid burst value '%v': %v", parts[1], err)
	}
	return limit, burst, nil
}

func parseRouteMethods(value string) ([]string, error) {
	var methods []string
	for _, method := range strings.FieldsFunc(value, isListSeparator) {
		method = strings.ToUpper(method)
		if !slices.Contains(knownMethods, method) {
			return nil, fmt.Errorf("unsupported method '%v'", method)
		}
		if !slices.Contains(methods, method) {
			methods = append(methods, method)
		}
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("at least one method must present")
	}
	return methods, nil
}

func handleDedicatedRoute(router *http.ServeMux, routeType int, handler http.Handler) {
	ri, ok := dedicatedRoutes[routeType]
	if !ok {
		panic(fmt.Sprintf("Unknown route type %v.", routeType))
	}
	handleRoute(router, ri, handler)
}

// handleRoute registers handler behind the route's method filter, rate
// limiter and body size cap, in that order, all inside the metrics wrapper.
func handleRoute(router *http.ServeMux, ri *routeInfo, handler http.Handler) {
	if ri.maxBodySize > 0 {
		handler = limitBody(ri.maxBodySize, handler)
	}
	if ri.rateLimit > 0 {
		handler = limitRate(rate.NewLimiter(rate.Limit(ri.rateLimit), ri.rateBurst), handler)
	}
	if len(ri.methods) > 0 {
		handler = allowMethods(ri.methods, handler)
	}
	router.Handle(ri.path, metricsHandler(metrics, ri.path)(handler))
}

func limitBody(size int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, size)
		next.ServeHTTP(w, r)
	})
}

func limitRate(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func allowMethods(methods []string, next http.Handler) http.Handler {
	allow := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(methods, r.Method) {
			w.Header().Set("Allow", allow)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
