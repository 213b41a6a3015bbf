package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rcarmo/go-bmp/internal/config"
	"github.com/rcarmo/go-bmp/internal/handler"
	"github.com/rcarmo/go-bmp/internal/logging"
	"github.com/rcarmo/go-bmp/web"
)

const (
	appName    = "BMP Decode Server"
	appVersion = "1.0.0"
)

type parsedArgs struct {
	host           string
	port           string
	logLevel       string
	logFormat      string
	maxWidth       int
	maxHeight      int
	maxPixels      int
	maxUploadBytes int64
	noColorimetry  bool
}

func main() {
	args, action := parseFlags()
	switch action {
	case "help":
		showHelp()
		return
	case "version":
		showVersion()
		return
	}

	if err := run(args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

func parseFlagsWithArgs(arguments []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	hostFlag := fs.String("host", "", "server listen host")
	portFlag := fs.String("port", "", "server listen port")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	logFormatFlag := fs.String("log-format", "", "log format (text, json)")
	maxWidth := fs.Int("max-width", 0, "reject images wider than this")
	maxHeight := fs.Int("max-height", 0, "reject images taller than this")
	maxPixels := fs.Int("max-pixels", 0, "reject images with more pixels than this")
	maxUpload := fs.Int64("max-upload", 0, "reject uploads larger than this many bytes")
	noColorimetry := fs.Bool("no-colorimetry", false, "ignore v4/v5 calibration data")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	if err := fs.Parse(arguments); err != nil {
		return parsedArgs{}, "help"
	}

	if *helpFlag {
		return parsedArgs{}, "help"
	}
	if *versionFlag {
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		host:           strings.TrimSpace(*hostFlag),
		port:           strings.TrimSpace(*portFlag),
		logLevel:       strings.TrimSpace(*logLevelFlag),
		logFormat:      strings.TrimSpace(*logFormatFlag),
		maxWidth:       *maxWidth,
		maxHeight:      *maxHeight,
		maxPixels:      *maxPixels,
		maxUploadBytes: *maxUpload,
		noColorimetry:  *noColorimetry,
	}, ""
}

func run(args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Host:           args.host,
		Port:           args.port,
		LogLevel:       args.logLevel,
		LogFormat:      args.logFormat,
		MaxWidth:       args.maxWidth,
		MaxHeight:      args.maxHeight,
		MaxPixels:      args.maxPixels,
		MaxUploadBytes: args.maxUploadBytes,
		NoColorimetry:  args.noColorimetry,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}

	server := createServer(cfg)
	logging.Info("starting server on %s (TLS=%t, max %dx%d, upload %d bytes)",
		server.Addr, cfg.Security.EnableTLS, cfg.Decoder.MaxWidth, cfg.Decoder.MaxHeight, cfg.Decoder.MaxUploadBytes)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- startServer(server, cfg) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func createServer(cfg *config.Config) *http.Server {
	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)

	mux := http.NewServeMux()
	if dist, err := web.DistFS(); err == nil {
		mux.Handle("/", http.FileServer(http.FS(dist)))
	} else {
		logging.Warn("static viewer unavailable: %v", err)
	}
	handler.New(cfg).Register(mux)

	var h http.Handler = bodyLimitMiddleware(mux, cfg.Decoder.MaxUploadBytes)
	h = applySecurityMiddleware(h, cfg)
	h = requestLoggingMiddleware(h)

	return &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func applySecurityMiddleware(next http.Handler, cfg *config.Config) http.Handler {
	if cfg == nil {
		return securityHeadersMiddleware(corsMiddleware(next, nil))
	}

	h := next
	if cfg.Security.EnableRateLimit {
		h = rateLimitMiddleware(h, cfg.Security.RateLimitPerMinute)
	}
	h = corsMiddleware(h, cfg.Security.AllowedOrigins)
	h = securityHeadersMiddleware(h)

	return h
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// The viewer runs inline scripts and the wasm decoder
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline' 'wasm-unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' blob: data:; connect-src 'self' ws: wss:")

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isOriginAllowed(origin, allowedOrigins, r.Host) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Expose-Headers", "X-Image-Width, X-Image-Height")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isOriginAllowed(origin string, allowedOrigins []string, host string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}

	// An empty allow-list is development mode
	if len(allowedOrigins) == 0 {
		return true
	}

	if host == "" {
		return false
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host != "" && strings.EqualFold(u.Host, host)
}

// rateLimiter counts requests per client IP in fixed one-minute windows.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	clients map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(perMinute int) *rateLimiter {
	return &rateLimiter{
		limit:   perMinute,
		window:  time.Minute,
		now:     time.Now,
		clients: make(map[string]*rateWindow),
	}
}

func (l *rateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[client]
	if !ok || now.Sub(w.start) >= l.window {
		if len(l.clients) > 10000 {
			l.prune(now)
		}
		l.clients[client] = &rateWindow{start: now, count: 1}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// prune drops expired windows. Callers hold mu.
func (l *rateLimiter) prune(now time.Time) {
	for k, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, k)
		}
	}
}

func rateLimitMiddleware(next http.Handler, perMinute int) http.Handler {
	limiter := newRateLimiter(perMinute)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}
		if !limiter.allow(client) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bodyLimitMiddleware rejects uploads whose declared length exceeds limit
// before any handler reads them.
func bodyLimitMiddleware(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit > 0 && r.ContentLength > limit {
			http.Error(w, fmt.Sprintf("upload exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setupLogging(cfg config.LoggingConfig) error {
	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		out = f
	}
	logging.Setup(cfg.Level, cfg.Format, out)
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Info("%s %s %s %d %s", r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func startServer(server *http.Server, cfg *config.Config) error {
	if server == nil {
		return fmt.Errorf("server is nil")
	}

	var err error
	if cfg != nil && cfg.Security.EnableTLS {
		server.TLSConfig = &tls.Config{MinVersion: tlsVersion(cfg.Security.MinTLSVersion)}
		err = server.ListenAndServeTLS(cfg.Security.TLSCertFile, cfg.Security.TLSKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func showHelp() {
	fmt.Println(appName)
	fmt.Println("USAGE: bmp-server [options]")
	fmt.Println("OPTIONS:")
	fmt.Println("  -host               Set server listen host (default 0.0.0.0)")
	fmt.Println("  -port               Set server listen port (default 8080)")
	fmt.Println("  -log-level          Set log level (debug, info, warn, error)")
	fmt.Println("  -log-format         Set log format (text, json)")
	fmt.Println("  -max-width          Reject images wider than this (default 32768)")
	fmt.Println("  -max-height         Reject images taller than this (default 32768)")
	fmt.Println("  -max-pixels         Reject images with more pixels than this (default 67108864)")
	fmt.Println("  -max-upload         Reject uploads larger than this many bytes")
	fmt.Println("  -no-colorimetry     Ignore v4/v5 calibration data")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show this help message")
	fmt.Println("ENVIRONMENT VARIABLES: SERVER_HOST, SERVER_PORT, LOG_LEVEL, LOG_FORMAT, LOG_FILE, BMP_MAX_WIDTH, BMP_MAX_HEIGHT, BMP_MAX_PIXELS, BMP_MAX_UPLOAD_BYTES, BMP_APPLY_COLORIMETRY, ALLOWED_ORIGINS")
	fmt.Println("EXAMPLES: bmp-server -host 127.0.0.1 -port 8080 -max-upload 16777216")
}

func showVersion() {
	fmt.Printf("%s %s\n", appName, appVersion)
	fmt.Println("Formats: BMP (core, OS/2, v1-v5; RLE4/RLE8/RLE24), TrueType simple glyphs")
}
